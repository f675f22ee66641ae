// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/capture"
	"github.com/starford/envisage/internal/index"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/noteservice"
)

const (
	noteFormatURI = "envisage://note-format"
	searchLimit   = 20
)

// Ingester turns an in-memory image into a note.
type Ingester interface {
	Submit(ctx context.Context, ev capture.Event) (*models.NoteRecord, error)
}

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *noteservice.Service
	ingester Ingester
	fetch    func(ctx context.Context, rawURL string) ([]byte, error)
}

// Option configures a Server.
type Option func(*Server)

// WithIngester enables the ingest_image tool.
func WithIngester(i Ingester) Option {
	return func(s *Server) { s.ingester = i }
}

// New creates a new MCP server with the note tools registered.
func New(svc *noteservice.Service, opts ...Option) *Server {
	s := &Server{svc: svc, fetch: fetchHTTP}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"Envisage",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through the text extracted from captured images."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note, frontmatter included."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note file name (e.g. 20250120T091502_123456Z__shot.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, optionally filtered by source or topic."),
		mcp.WithString("source", mcp.Description("Only notes from this source (screenshot, clipboard, upload)")),
		mcp.WithString("topic", mcp.Description("Only notes carrying this topic")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of notes to skip")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the note file format: naming, frontmatter keys and body conventions."),
	), s.getNoteFormat)

	if s.ingester != nil {
		s.mcp.AddTool(mcp.NewTool("ingest_image",
			mcp.WithDescription("Extract the text of an image into a new note. "+
				"Accepts an http(s) URL or a base64 data URI. Identical images are ingested once."),
			mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data:image/...;base64,... URI")),
			mcp.WithString("name", mcp.Description("Optional stem for the note file name")),
		), s.ingestImage)
	}

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format",
			mcp.WithResourceDescription("Format of the Markdown notes written by the capture pipeline."),
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", searchLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNote(ctx, path)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

type listResult struct {
	Notes []noteservice.NoteListItem `json:"notes"`
	Total int                        `json:"total"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListNotes(ctx, index.ListQuery{
		Source: req.GetString("source", ""),
		Topic:  req.GetString("topic", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(listResult{Notes: items, Total: total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
