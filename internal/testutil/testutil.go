// Package testutil provides shared test helpers: temp stores, catalogs,
// synthetic images and a scripted OCR engine.
package testutil

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/envisage/internal/imaging"
	"github.com/starford/envisage/internal/index"
	"github.com/starford/envisage/internal/ocr"
	"github.com/starford/envisage/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "envisage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary directory with a storage.FS rooted at it.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// PNG returns a small PNG whose pixels depend on seed; distinct seeds give
// distinct content.
func PNG(t *testing.T, seed int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(x * y), A: 255})
		}
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// WriteImage writes a PNG for seed to dir/name and returns its path.
func WriteImage(t *testing.T, dir, name string, seed int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PNG(t, seed), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Engine is a scripted ocr.Engine.
type Engine struct {
	mu     sync.Mutex
	result ocr.Result
	calls  int
}

// NewEngine returns an engine that always yields res.
func NewEngine(res ocr.Result) *Engine {
	return &Engine{result: res}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "fake" }

// Extract implements ocr.Engine.
func (e *Engine) Extract(_ context.Context, _ image.Image) ocr.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.result
}

// Calls returns how many extractions ran.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Logger returns a logger that only emits errors, for quiet tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
