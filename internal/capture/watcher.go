package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/envisage/internal/imaging"
	"github.com/starford/envisage/internal/models"
)

// Watcher emits an event for every image file created directly inside dir.
// Sub-directories are not watched. A missing dir is created.
type Watcher struct {
	dir    string
	source string
	logger *slog.Logger
	now    func() time.Time
}

// NewWatcher creates a Watcher for dir, tagging events as screenshots.
func NewWatcher(dir string, logger *slog.Logger) *Watcher {
	return &Watcher{dir: dir, source: models.SourceScreenshot, logger: logger, now: time.Now}
}

// Run implements Source.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create: %w", err)
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return fmt.Errorf("watcher: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("watcher: create dir: %w", err)
	}
	if err := fw.Add(abs); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", abs, err)
	}

	w.logger.Info("watcher: started", slog.String("dir", abs))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher: event channel closed")
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			if !imaging.IsImageName(ev.Name) {
				w.logger.Debug("watcher: ignored", slog.String("path", ev.Name))
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
				continue
			}

			w.logger.Info("watcher: new file", slog.String("path", ev.Name))
			if !emit(ctx, out, Event{
				Path:         ev.Name,
				Name:         filepath.Base(ev.Name),
				Source:       w.source,
				DiscoveredAt: w.now(),
			}) {
				return nil
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher: error channel closed")
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
