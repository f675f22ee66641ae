package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/envisage/internal/imaging"
)

// CaptureHandler serves saved clipboard captures read-only.
type CaptureHandler struct {
	dir string
}

// NewCaptureHandler creates a handler rooted at the captures directory.
func NewCaptureHandler(dir string) *CaptureHandler {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &CaptureHandler{dir: abs}
}

// safeName validates that the filename is a plain image name (no path
// separators, no traversal) and returns its absolute path.
func (h *CaptureHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !imaging.IsImageName(cleaned) {
		return "", fmt.Errorf("not an image: %s", name)
	}
	abs := filepath.Join(h.dir, cleaned)
	if !strings.HasPrefix(abs, h.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes captures directory")
	}
	return abs, nil
}

// ServeFile handles GET /captures/{filename}.
func (h *CaptureHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	http.ServeFile(w, r, abs)
}
