package api

import (
	"github.com/starford/envisage/internal/noteservice"
	"github.com/starford/envisage/internal/pipeline"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SyncRequest is the optional body of POST /api/sync.
type SyncRequest struct {
	Message string `json:"message"`
}

// StageDTO is one pipeline stage outcome.
type StageDTO struct {
	Name       string `json:"name"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RunResponse reports a pipeline run triggered over HTTP.
type RunResponse struct {
	OK      bool       `json:"ok"`
	Stages  []StageDTO `json:"stages"`
	Pages   int        `json:"pages,omitempty"`
	Skipped []string   `json:"skipped,omitempty"`
	Sync    string     `json:"sync,omitempty"`
	NoOp    bool       `json:"noop,omitempty"`
}

func runResponse(rep pipeline.Report) RunResponse {
	out := RunResponse{OK: rep.OK(), Stages: []StageDTO{}}
	for _, st := range rep.Stages {
		dto := StageDTO{Name: st.Name, DurationMS: st.Duration.Milliseconds()}
		if st.Err != nil {
			dto.Error = st.Err.Error()
		}
		out.Stages = append(out.Stages, dto)
	}
	if rep.Site != nil {
		out.Pages = rep.Site.Pages
		out.Skipped = rep.Site.Skipped
	}
	if rep.Sync != nil {
		out.Sync = rep.Sync.Message
		out.NoOp = rep.Sync.NoOp
	}
	return out
}
