// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Quire notes to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

const contractURI = "quire://note-format"

// Options holds the attachment settings shared with the web upload.
type Options struct {
	PublicURL         string
	AllowedExtensions []string
	MaxUploadBytes    int64
}

// Server wraps the MCP server with Quire tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	blobs storage.Provider
	opts  Options
}

// New creates a new MCP server with all Quire tools registered.
func New(svc *noteservice.Service, blobs storage.Provider, opts Options) *Server {
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = storage.DefaultAllowedExtensions
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	s := &Server{svc: svc, blobs: blobs, opts: opts}

	s.mcp = server.NewMCPServer(
		"Quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, 10 per page."),
		mcp.WithBoolean("trash", mcp.Description("List the trash instead of active notes")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its HTML content and attachment URLs."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Create a note, or replace the content of an existing one. "+
			"Content is an HTML fragment; read the format via get_note_contract first."),
		mcp.WithString("id", mcp.Description("Id of the note to edit; omit to create")),
		mcp.WithString("content", mcp.Required(), mcp.Description("HTML content")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("trash_note",
		mcp.WithDescription("Move a note to the trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.action(noteservice.ActionDelete))

	s.mcp.AddTool(mcp.NewTool("restore_note",
		mcp.WithDescription("Move a note out of the trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.action(noteservice.ActionRestore))

	s.mcp.AddTool(mcp.NewTool("purge_note",
		mcp.WithDescription("Permanently delete a note and every attachment it links to."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.action(noteservice.ActionPurge))

	s.mcp.AddTool(mcp.NewTool("empty_trash",
		mcp.WithDescription("Permanently delete every trashed note and its attachments."),
	), s.action(noteservice.ActionEmptyTrash))

	s.mcp.AddTool(mcp.NewTool("upload_attachment",
		mcp.WithDescription("Store a file from a base64 data URI or an http(s) URL and "+
			"return its URL and an anchor tag to paste into a note."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:<mime>;base64,<data> URI or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Original file name; decides the extension")),
	), s.uploadAttachment)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Quire note format. Call this before saving notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format",
			mcp.WithResourceDescription("How note content and attachments are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.List(ctx, req.GetBool("trash", false), req.GetInt("page", 1))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Save(ctx, req.GetString("id", ""), content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

// action returns a handler applying the named lifecycle action to the id
// argument.
func (s *Server) action(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, ok := noteservice.ParseAction(name, req.GetString("id", ""))
		if !ok {
			return mcp.NewToolResultError("id is required"), nil
		}
		c, err := s.svc.Apply(ctx, a)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if name == noteservice.ActionDelete || name == noteservice.ActionRestore {
			return mcp.NewToolResultText(fmt.Sprintf("%s: %s", name, req.GetString("id", ""))), nil
		}
		return jsonResult(c)
	}
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
