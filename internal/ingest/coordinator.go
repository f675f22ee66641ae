// Package ingest turns capture events into notes: it admits each event once,
// waits for files to settle, drops repeated clipboard content and hands every
// surviving image to the note builder and the publish pipeline, one at a time.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/capture"
	"github.com/starford/envisage/internal/imaging"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/note"
	"github.com/starford/envisage/internal/pipeline"
	"github.com/starford/envisage/internal/stamp"
	"github.com/starford/envisage/internal/storage"
)

// DefaultQueueSize is the capacity of the admitted-event queue.
const DefaultQueueSize = 64

// NoteBuilder writes a note for one image.
type NoteBuilder interface {
	Build(ctx context.Context, in note.Input) (*models.NoteRecord, error)
}

// Publisher runs the downstream stages for a freshly written note.
type Publisher interface {
	Publish(ctx context.Context, rec *models.NoteRecord) pipeline.Report
}

// Coordinator owns events from admission to their terminal handling.
type Coordinator struct {
	builder   NoteBuilder
	publisher Publisher
	logger    *slog.Logger

	gate      *Gate
	seen      *Fingerprints
	inflight  *InFlight
	queueSize int

	captures storage.Provider
	stamper  *stamp.Stamper

	// mu serializes processing between the consumer and Submit.
	mu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGate replaces the default stability gate.
func WithGate(g *Gate) Option {
	return func(c *Coordinator) { c.gate = g }
}

// WithFingerprints replaces the default fingerprint set.
func WithFingerprints(f *Fingerprints) Option {
	return func(c *Coordinator) { c.seen = f }
}

// WithInFlight replaces the default in-flight guard.
func WithInFlight(g *InFlight) Option {
	return func(c *Coordinator) { c.inflight = g }
}

// WithQueueSize sets the admitted-event queue capacity.
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithCaptures saves clipboard images into store before they are turned
// into notes, named with stamps from s.
func WithCaptures(store storage.Provider, s *stamp.Stamper) Option {
	return func(c *Coordinator) {
		c.captures = store
		c.stamper = s
	}
}

// New creates a Coordinator. publisher may be nil.
func New(builder NoteBuilder, publisher Publisher, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		builder:   builder,
		publisher: publisher,
		logger:    logger,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gate == nil {
		c.gate = NewGate(0, 0, logger)
	}
	if c.seen == nil {
		c.seen = NewFingerprints(DefaultSeenCapacity)
	}
	if c.inflight == nil {
		c.inflight = NewInFlight(DefaultGuardDelay)
	}
	if c.stamper == nil {
		c.stamper = stamp.New(nil)
	}
	return c
}

// Run consumes events from in until ctx is cancelled or in is closed.
// The event being processed at cancellation runs to completion; events
// admitted but not yet started are dropped.
func (c *Coordinator) Run(ctx context.Context, in <-chan capture.Event) error {
	queue := make(chan capture.Event, c.queueSize)
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.consume(ctx, queue)
	}()

	c.admit(ctx, in, queue)
	close(queue)
	<-done

	c.logger.Info("ingest: stopped")
	return nil
}

func (c *Coordinator) admit(ctx context.Context, in <-chan capture.Event, queue chan<- capture.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			key := ev.Key()
			if !c.inflight.TryAcquire(key) {
				c.logger.Debug("ingest: already in flight", slog.String("key", key))
				continue
			}
			select {
			case queue <- ev:
			case <-ctx.Done():
				c.inflight.Release(key)
				return
			}
		}
	}
}

func (c *Coordinator) consume(ctx context.Context, queue <-chan capture.Event) {
	work := context.WithoutCancel(ctx)
	for ev := range queue {
		if ctx.Err() != nil {
			c.logger.Info("ingest: dropped at shutdown",
				slog.String("key", ev.Key()),
				slog.String("source", ev.Source))
			c.inflight.Release(ev.Key())
			continue
		}
		c.handle(work, ev)
	}
}

// Submit processes ev immediately and returns the note written for it. It
// may be called while Run is active; processing stays one event at a time.
func (c *Coordinator) Submit(ctx context.Context, ev capture.Event) (*models.NoteRecord, error) {
	key := ev.Key()
	if !c.inflight.TryAcquire(key) {
		return nil, fmt.Errorf("ingest: %s: %w", key, apperr.ErrBusy)
	}
	defer c.inflight.Release(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.process(ctx, ev)
}

// handle processes one event. Failures are logged and never escape.
func (c *Coordinator) handle(ctx context.Context, ev capture.Event) {
	defer c.inflight.Release(ev.Key())
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("ingest: panic while processing",
				slog.String("key", ev.Key()),
				slog.String("source", ev.Source),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.process(ctx, ev)
}

func (c *Coordinator) process(ctx context.Context, ev capture.Event) (*models.NoteRecord, error) {
	in, err := c.prepare(ctx, ev)
	if err != nil {
		return nil, err
	}

	rec, err := c.builder.Build(ctx, in)
	if err != nil {
		c.logger.Error("ingest: build failed",
			slog.String("key", ev.Key()),
			slog.String("source", ev.Source),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("ingest: build: %w", err)
	}

	if c.publisher != nil {
		c.publisher.Publish(ctx, rec)
	}
	return rec, nil
}

// prepare turns an event into builder input, applying the stability gate to
// files and the duplicate filter to in-memory content.
func (c *Coordinator) prepare(ctx context.Context, ev capture.Event) (note.Input, error) {
	if !ev.InMemory() {
		c.gate.Wait(ctx, ev.Path)
		data, err := os.ReadFile(ev.Path)
		if err != nil {
			c.logger.Warn("ingest: read failed",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
			return note.Input{}, fmt.Errorf("ingest: read %s: %w", ev.Path, err)
		}
		return note.Input{Data: data, OrigFilename: ev.Name, Source: ev.Source}, nil
	}

	canon, err := imaging.Canonicalize(ev.Data)
	if err != nil {
		c.logger.Debug("ingest: clipboard content not decodable",
			slog.String("name", ev.Name),
			slog.String("error", err.Error()))
		return note.Input{}, err
	}
	if c.seen.Seen(canon.Fingerprint) {
		c.logger.Debug("ingest: duplicate content", slog.String("name", ev.Name))
		return note.Input{}, fmt.Errorf("ingest: %s: %w", ev.Name, apperr.ErrDuplicate)
	}

	return note.Input{
		Image:        canon.Image,
		OrigFilename: c.saveCapture(ev.Name, canon.PNG),
		Stem:         ev.Name,
		Source:       ev.Source,
	}, nil
}

// saveCapture writes the PNG form of a clipboard image and returns the file
// name recorded as the note's origin. Without a captures store the prefix
// itself is used.
func (c *Coordinator) saveCapture(prefix string, png []byte) string {
	name := stamp.Filename(c.stamper.Next()) + "__" + note.SanitizeStem(prefix) + ".png"
	if c.captures == nil {
		return prefix + ".png"
	}
	if err := c.captures.Write(name, png); err != nil {
		c.logger.Warn("ingest: save capture failed",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return prefix + ".png"
	}
	c.logger.Info("ingest: capture saved", slog.String("name", name))
	return name
}
