package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/envisage/internal/noteservice"
)

// RouterConfig collects what NewRouter mounts.
type RouterConfig struct {
	Service     *noteservice.Service
	Ops         Operations
	AuthEnabled bool
	Token       string
	// SSE, if non-nil, is mounted at GET /events inside the auth group.
	SSE http.Handler
	// CapturesDir, if set, is served read-only at GET /captures/{filename}.
	CapturesDir string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Service, cfg.Ops)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{name}", h.GetNote)
	r.Get("/search", h.Search)

	r.Post("/site/regenerate", h.Regenerate)
	r.Post("/sync", h.Sync)

	if cfg.CapturesDir != "" {
		r.Get("/captures/{filename}", NewCaptureHandler(cfg.CapturesDir).ServeFile)
	}

	// SSE endpoint (protected by same auth middleware).
	if cfg.SSE != nil {
		r.Get("/events", cfg.SSE.ServeHTTP)
	}

	return r
}
