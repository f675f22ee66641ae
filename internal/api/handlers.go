package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/index"
	"github.com/starford/envisage/internal/noteservice"
	"github.com/starford/envisage/internal/pipeline"
)

// DefaultSyncMessage is the commit message of a sync triggered without one.
const DefaultSyncMessage = "notes: sync"

// Operations runs pipeline stages on demand. It is serialized with the
// ingestion pipeline by the implementation.
type Operations interface {
	Regenerate(ctx context.Context) pipeline.Report
	SyncNow(ctx context.Context, message string) pipeline.Report
}

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
	ops Operations
}

// NewHandler creates a new Handler. ops may be nil, which disables the
// regenerate and sync routes.
func NewHandler(svc *noteservice.Service, ops Operations) *Handler {
	return &Handler{svc: svc, ops: ops}
}

// noteName extracts the note file name from the URL.
func noteName(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "name"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List notes newest first with optional pagination and filtering
//	@Param		limit	query	int		false	"Page size"
//	@Param		offset	query	int		false	"Page offset"
//	@Param		source	query	string	false	"Filter by source (screenshot, clipboard)"
//	@Param		topic	query	string	false	"Filter by topic"
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), index.ListQuery{
		Limit:  limit,
		Offset: offset,
		Source: q.Get("source"),
		Topic:  q.Get("topic"),
	})
	if err != nil {
		slog.Error("api: list notes failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{name}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	note, err := h.svc.GetNote(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("api: get note failed", slog.String("name", name), slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "invalid note name")
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Search handles GET /api/search.
//
//	@Param	q		query	string	true	"Search query"
//	@Param	limit	query	int		false	"Max results"
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("api: search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := SearchResponse{Results: make([]SearchResult, len(results))}
	for i, res := range results {
		out.Results[i] = SearchResult{Path: res.Path, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, out)
}

// Regenerate handles POST /api/site/regenerate.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if h.ops == nil {
		writeError(w, http.StatusNotImplemented, "pipeline not configured")
		return
	}
	rep := h.ops.Regenerate(r.Context())
	writeRun(w, rep)
}

// Sync handles POST /api/sync with an optional {"message": "..."} body.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.ops == nil {
		writeError(w, http.StatusNotImplemented, "pipeline not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		msg = DefaultSyncMessage
	}
	writeRun(w, h.ops.SyncNow(r.Context(), msg))
}

func writeRun(w http.ResponseWriter, rep pipeline.Report) {
	status := http.StatusOK
	if !rep.OK() {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, runResponse(rep))
}
