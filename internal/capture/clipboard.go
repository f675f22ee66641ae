package capture

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/starford/envisage/internal/imaging"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/note"
)

// ClipboardPrefix names captures taken from raw clipboard image data.
const ClipboardPrefix = "clipboard"

// Content is a clipboard snapshot: a list of file references, raw image
// bytes, or neither.
type Content struct {
	Files []string
	Image []byte
}

// Clipboard reads the system clipboard.
type Clipboard interface {
	Read(ctx context.Context) (Content, error)
}

// ClipboardPoller samples a Clipboard on a fixed interval and emits image
// events. Repeated content is emitted again on every tick; suppressing it is
// the duplicate filter's job.
type ClipboardPoller struct {
	clip     Clipboard
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewClipboardPoller creates a poller; a non-positive interval defaults to one second.
func NewClipboardPoller(clip Clipboard, interval time.Duration, logger *slog.Logger) *ClipboardPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &ClipboardPoller{clip: clip, interval: interval, logger: logger, now: time.Now}
}

// Run implements Source.
func (p *ClipboardPoller) Run(ctx context.Context, out chan<- Event) error {
	p.logger.Info("clipboard: polling", slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ev, ok := p.poll(ctx); ok {
			if !emit(ctx, out, ev) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			p.logger.Info("clipboard: stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// poll reads the clipboard once. Errors and non-image content count as empty.
func (p *ClipboardPoller) poll(ctx context.Context) (Event, bool) {
	content, err := p.clip.Read(ctx)
	if err != nil {
		p.logger.Debug("clipboard: read failed", slog.String("error", err.Error()))
		return Event{}, false
	}

	if len(content.Files) > 0 {
		for _, f := range content.Files {
			info, statErr := os.Stat(f)
			if statErr != nil || !info.Mode().IsRegular() {
				continue
			}
			data, readErr := os.ReadFile(f)
			if readErr != nil {
				p.logger.Debug("clipboard: file unreadable", slog.String("path", f), slog.String("error", readErr.Error()))
				return Event{}, false
			}
			if !imaging.Probe(data) {
				p.logger.Debug("clipboard: file is not an image", slog.String("path", f))
				return Event{}, false
			}
			return Event{Data: data, Name: note.StemOf(f), Source: models.SourceClipboard, DiscoveredAt: p.now()}, true
		}
		p.logger.Debug("clipboard: no existing file in list", slog.Int("files", len(content.Files)))
		return Event{}, false
	}

	if len(content.Image) == 0 {
		return Event{}, false
	}
	if !imaging.Probe(content.Image) {
		p.logger.Debug("clipboard: content is not an image")
		return Event{}, false
	}
	return Event{Data: content.Image, Name: ClipboardPrefix, Source: models.SourceClipboard, DiscoveredAt: p.now()}, true
}
