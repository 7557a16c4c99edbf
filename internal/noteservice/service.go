// Package noteservice implements the note lifecycle: save, soft delete,
// restore, purge and paginated listing over the metadata and blob stores.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/kv"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/storage"
)

// PageSize is the fixed number of notes per listing page.
const PageSize = 10

const maxIDLength = 128

// Extractor derives the attachment list of a note from its content.
type Extractor func(content string) []string

// Page is one page of a listing. Page numbers are 1-based.
type Page struct {
	Notes    []models.Note `json:"notes"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
	Pages    int           `json:"pages"`
}

// Cleanup reports what a purge removed. Orphaned lists attachments whose
// deletion failed; they stay in the blob store.
type Cleanup struct {
	Notes    int      `json:"notes"`
	Removed  []string `json:"removed"`
	Orphaned []string `json:"orphaned"`
}

func (c *Cleanup) merge(o Cleanup) {
	c.Notes += o.Notes
	c.Removed = append(c.Removed, o.Removed...)
	c.Orphaned = append(c.Orphaned, o.Orphaned...)
}

// Service coordinates note records and their attachments.
type Service struct {
	store   kv.Store
	blobs   storage.Provider
	extract Extractor
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor replaces the attachment extractor.
func WithExtractor(e Extractor) Option {
	return func(s *Service) { s.extract = e }
}

// WithClock replaces the time source used for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new note service.
func NewService(store kv.Store, blobs storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:   store,
		blobs:   blobs,
		extract: parser.ExtractFiles,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get loads a note, or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	if id == "" {
		return nil, apperr.ErrNotFound
	}
	return kv.GetJSON[models.Note](ctx, s.store, kv.NoteKey(id))
}

// Save creates a note when id is empty and otherwise writes the note under
// id, keeping the deleted flag of any existing record. Time and Files are
// recomputed on every save.
func (s *Service) Save(ctx context.Context, id, content string) (*models.Note, error) {
	if err := validation.Validate(id, validation.Length(0, maxIDLength)); err != nil {
		return nil, fmt.Errorf("%w: id %v", apperr.ErrInvalidInput, err)
	}

	note := models.Note{ID: id}
	if id == "" {
		note.ID = uuid.NewString()
	} else {
		existing, err := s.Get(ctx, id)
		switch {
		case err == nil:
			note.Deleted = existing.Deleted
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	note.Content = content
	note.Time = s.now().Unix()
	note.Files = s.extract(content)
	if note.Files == nil {
		note.Files = []string{}
	}
	if err := kv.PutJSON(ctx, s.store, kv.NoteKey(note.ID), note); err != nil {
		return nil, err
	}
	return &note, nil
}

// Delete moves a note to the trash. A missing note is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.setDeleted(ctx, id, true)
}

// Restore moves a note out of the trash. A missing note is not an error.
func (s *Service) Restore(ctx context.Context, id string) error {
	return s.setDeleted(ctx, id, false)
}

func (s *Service) setDeleted(ctx context.Context, id string, deleted bool) error {
	note, err := s.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	note.Deleted = deleted
	return kv.PutJSON(ctx, s.store, kv.NoteKey(id), note)
}

// Purge removes a note's attachments and then its record. Attachment
// removal is best effort: failures land in Cleanup.Orphaned and are logged,
// never returned. Hrefs that cannot name a blob are skipped. A missing note
// is not an error.
func (s *Service) Purge(ctx context.Context, id string) (Cleanup, error) {
	note, err := s.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return Cleanup{}, nil
	}
	if err != nil {
		return Cleanup{}, err
	}
	return s.purge(ctx, note)
}

func (s *Service) purge(ctx context.Context, note *models.Note) (Cleanup, error) {
	c := Cleanup{Removed: []string{}, Orphaned: []string{}}
	for _, href := range note.Files {
		name := parser.AttachmentName(href)
		if storage.ValidateName(name) != nil {
			continue
		}
		if err := s.blobs.Delete(ctx, name); err != nil {
			slog.Warn("attachment cleanup failed",
				slog.String("note", note.ID),
				slog.String("name", name),
				slog.String("error", err.Error()))
			c.Orphaned = append(c.Orphaned, name)
			continue
		}
		c.Removed = append(c.Removed, name)
	}
	if err := s.store.Delete(ctx, kv.NoteKey(note.ID)); err != nil {
		return c, err
	}
	c.Notes = 1
	return c, nil
}

// EmptyTrash purges every trashed note.
func (s *Service) EmptyTrash(ctx context.Context) (Cleanup, error) {
	trashed, err := s.filter(ctx, true)
	if err != nil {
		return Cleanup{}, err
	}
	total := Cleanup{Removed: []string{}, Orphaned: []string{}}
	for i := range trashed {
		c, err := s.purge(ctx, &trashed[i])
		total.merge(c)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// List returns one page of active (deleted=false) or trashed notes, newest
// first. A page outside 1..Pages yields no notes.
func (s *Service) List(ctx context.Context, deleted bool, page int) (*Page, error) {
	notes, err := s.filter(ctx, deleted)
	if err != nil {
		return nil, err
	}
	p := &Page{
		Notes:    []models.Note{},
		Page:     page,
		PageSize: PageSize,
		Total:    len(notes),
		Pages:    (len(notes) + PageSize - 1) / PageSize,
	}
	if page < 1 {
		return p, nil
	}
	start := (page - 1) * PageSize
	if start >= len(notes) {
		return p, nil
	}
	end := min(start+PageSize, len(notes))
	p.Notes = notes[start:end]
	return p, nil
}

// Count returns the number of active or trashed notes.
func (s *Service) Count(ctx context.Context, deleted bool) (int, error) {
	notes, err := s.filter(ctx, deleted)
	if err != nil {
		return 0, err
	}
	return len(notes), nil
}

// filter loads every note with the given deleted flag, newest first. Equal
// timestamps keep key order.
func (s *Service) filter(ctx context.Context, deleted bool) ([]models.Note, error) {
	keys, err := s.store.Keys(ctx, kv.NotePrefix)
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(keys))
	for _, k := range keys {
		n, err := kv.GetJSON[models.Note](ctx, s.store, k)
		if errors.Is(err, apperr.ErrNotFound) {
			// purged between Keys and Get
			continue
		}
		if err != nil {
			return nil, err
		}
		if n.Deleted == deleted {
			notes = append(notes, *n)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Time > notes[j].Time })
	return notes, nil
}
