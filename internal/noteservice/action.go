package noteservice

import (
	"context"
	"fmt"
)

// Action names accepted by ParseAction.
const (
	ActionDelete     = "delete"
	ActionRestore    = "restore"
	ActionPurge      = "purge"
	ActionEmptyTrash = "empty_trash"
)

// Action is a lifecycle command. The transport that delivers it does not
// matter: Apply runs the same code for every caller.
type Action interface {
	Name() string
}

// DeleteAction moves a note to the trash.
type DeleteAction struct{ ID string }

// RestoreAction moves a note out of the trash.
type RestoreAction struct{ ID string }

// PurgeAction removes a note and its attachments.
type PurgeAction struct{ ID string }

// EmptyTrashAction purges every trashed note.
type EmptyTrashAction struct{}

func (DeleteAction) Name() string     { return ActionDelete }
func (RestoreAction) Name() string    { return ActionRestore }
func (PurgeAction) Name() string      { return ActionPurge }
func (EmptyTrashAction) Name() string { return ActionEmptyTrash }

// ParseAction builds the action named by name. It reports false for an
// unknown name, or when an action that targets a note has no id.
func ParseAction(name, id string) (Action, bool) {
	var a Action
	switch name {
	case ActionDelete:
		a = DeleteAction{ID: id}
	case ActionRestore:
		a = RestoreAction{ID: id}
	case ActionPurge:
		a = PurgeAction{ID: id}
	case ActionEmptyTrash:
		return EmptyTrashAction{}, true
	default:
		return nil, false
	}
	if id == "" {
		return nil, false
	}
	return a, true
}

// Apply runs a. The Cleanup is empty for actions that remove nothing.
func (s *Service) Apply(ctx context.Context, a Action) (Cleanup, error) {
	switch a := a.(type) {
	case DeleteAction:
		return Cleanup{}, s.Delete(ctx, a.ID)
	case RestoreAction:
		return Cleanup{}, s.Restore(ctx, a.ID)
	case PurgeAction:
		return s.Purge(ctx, a.ID)
	case EmptyTrashAction:
		return s.EmptyTrash(ctx)
	default:
		return Cleanup{}, fmt.Errorf("noteservice: unsupported action %T", a)
	}
}
