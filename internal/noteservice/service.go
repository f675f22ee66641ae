// Package noteservice exposes read access to notes for the HTTP and MCP
// surfaces: detail from disk, listings and search from the catalog.
package noteservice

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/checksum"
	"github.com/starford/envisage/internal/index"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/parser"
	"github.com/starford/envisage/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path         string            `json:"path"`
	Title        string            `json:"title"`
	CreatedUTC   string            `json:"created_utc"`
	Source       string            `json:"source"`
	OrigFilename string            `json:"orig_filename"`
	Topics       []string          `json:"topics"`
	Version      string            `json:"version"`
	OCREngine    string            `json:"ocr_engine"`
	OCRFailed    bool              `json:"ocr_failed"`
	Body         string            `json:"body"`
	Content      string            `json:"content"`
	Checksum     string            `json:"checksum"`
	Frontmatter  map[string]string `json:"frontmatter,omitempty"`
	PageURL      string            `json:"page_url"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	CreatedUTC string    `json:"created_utc"`
	Source     string    `json:"source"`
	Topics     []string  `json:"topics"`
	OCRFailed  bool      `json:"ocr_failed"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service coordinates storage and catalog reads.
type Service struct {
	store storage.Provider
	db    index.NoteIndex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex) *Service {
	return &Service{store: store, db: db}
}

// GetNote reads a note file and returns its parsed form. name is the file
// name inside the notes directory; the .md suffix is optional.
func (s *Service) GetNote(_ context.Context, name string) (*NoteDetail, error) {
	name = normalizeName(name)
	data, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildNoteDetail(name, data), nil
}

// ListNotes returns paginated notes, newest first.
func (s *Service) ListNotes(_ context.Context, q index.ListQuery) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:       r.Path,
			Title:      r.Title,
			CreatedUTC: r.CreatedUTC,
			Source:     r.Source,
			Topics:     SplitTopics(r.Topics),
			OCRFailed:  r.OCRFailed,
			Checksum:   r.Checksum,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []index.SearchResult{}, nil
	}
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// SplitTopics splits a comma separated topics value.
func SplitTopics(v string) []string {
	out := []string{}
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeName(name string) string {
	name = strings.TrimPrefix(name, "/")
	if !strings.EqualFold(path.Ext(name), ".md") {
		name += ".md"
	}
	return name
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func buildNoteDetail(name string, data []byte) *NoteDetail {
	res, _ := parser.Parse(data)
	row := index.RowFor(name, data, time.Time{})
	return &NoteDetail{
		Path:         name,
		Title:        row.Title,
		CreatedUTC:   row.CreatedUTC,
		Source:       res.Get(models.KeySource, ""),
		OrigFilename: res.Get(models.KeyOrigFilename, ""),
		Topics:       SplitTopics(row.Topics),
		Version:      res.Get(models.KeyVersion, ""),
		OCREngine:    res.Get(models.KeyOCREngine, ""),
		OCRFailed:    row.OCRFailed,
		Body:         res.Body,
		Content:      string(data),
		Checksum:     checksum.Sum(data),
		Frontmatter:  res.Fields,
		PageURL:      "/notes/" + strings.TrimSuffix(name, path.Ext(name)) + ".html",
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
