// Package capture produces image events from the two supported feeds: a
// watched screenshot directory and the system clipboard.
package capture

import (
	"context"
	"time"
)

// Event is one discovered image. Exactly one of Path and Data is set.
type Event struct {
	// Path is the absolute path of a file-system sourced image.
	Path string
	// Data holds in-memory image bytes from the clipboard.
	Data []byte
	// Name is the capture prefix for in-memory images, or the base name of Path.
	Name string
	// Source is the provenance tag written into the note.
	Source       string
	DiscoveredAt time.Time
}

// InMemory reports whether the event carries image bytes rather than a path.
func (e Event) InMemory() bool {
	return e.Path == ""
}

// Key identifies the event for the in-flight guard.
func (e Event) Key() string {
	if e.Path != "" {
		return e.Path
	}
	return "clipboard:" + e.Name
}

// Source emits events on out until ctx is cancelled. A non-nil error means
// the feed failed and cannot continue.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

// emit hands ev to the consumer without blocking past cancellation.
func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
