package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/envisage/internal/gitsync"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/pipeline"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishNoteEvent_SiteThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger site.updated.
	b.PublishNoteEvent(KindCreated, NoteEvent{Path: "a.md"})
	// Second event immediately should NOT trigger another site.updated.
	b.PublishNoteEvent(KindCreated, NoteEvent{Path: "b.md"})

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	siteCount := 0
	noteCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "site.updated") {
				siteCount++
			} else {
				noteCount++
			}
		default:
			break loop
		}
	}

	if noteCount != 2 {
		t.Errorf("note events = %d, want 2", noteCount)
	}
	if siteCount != 1 {
		t.Errorf("site events = %d, want 1 (throttled)", siteCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.created") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "x.md"}})
	b.PublishNoteEvent(KindCreated, NoteEvent{Path: "x.md"})
}

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestNotifyPipeline_Created(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	rec := &models.NoteRecord{Filename: "n.md", Source: "clipboard", ExtractionFailed: true}
	rep := pipeline.Report{Stages: []pipeline.StageResult{
		{Name: pipeline.StageSite},
		{Name: pipeline.StageSync, Err: errors.New("no remote")},
	}}
	b.NotifyPipeline(rec, rep)

	msgs := strings.Join(drain(ch), "")
	if !strings.Contains(msgs, "event: note.created") || !strings.Contains(msgs, `"path":"n.md"`) {
		t.Errorf("missing note.created in %q", msgs)
	}
	if !strings.Contains(msgs, `"ocr_failed":true`) {
		t.Errorf("missing ocr flag in %q", msgs)
	}
	if !strings.Contains(msgs, "event: pipeline.failed") || !strings.Contains(msgs, `"failed_stages":["sync"]`) {
		t.Errorf("missing pipeline.failed in %q", msgs)
	}
	if !strings.Contains(msgs, "event: site.updated") {
		t.Errorf("missing site.updated in %q", msgs)
	}
}

func TestNotifyPipeline_SyncOnly(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.NotifyPipeline(nil, pipeline.Report{Sync: &gitsync.Result{OK: true}})

	msgs := strings.Join(drain(ch), "")
	if !strings.Contains(msgs, "event: sync.completed") {
		t.Errorf("missing sync.completed in %q", msgs)
	}
	if strings.Contains(msgs, "note.created") {
		t.Errorf("unexpected note event in %q", msgs)
	}
}
