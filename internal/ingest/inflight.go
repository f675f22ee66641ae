package ingest

import (
	"sync"
	"time"
)

// DefaultGuardDelay is how long a released key keeps rejecting repeats.
const DefaultGuardDelay = 250 * time.Millisecond

// InFlight rejects duplicate notifications for a key that is being
// processed or was released less than delay ago.
type InFlight struct {
	mu      sync.Mutex
	delay   time.Duration
	entries map[string]time.Time // zero value: still processing
	now     func() time.Time
}

// NewInFlight creates a guard; a negative delay is treated as zero.
func NewInFlight(delay time.Duration) *InFlight {
	if delay < 0 {
		delay = 0
	}
	return &InFlight{delay: delay, entries: make(map[string]time.Time), now: time.Now}
}

// TryAcquire marks key as in flight. It returns false if key is already
// in flight or still inside its release delay.
func (g *InFlight) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.pruneLocked(now)
	if _, busy := g.entries[key]; busy {
		return false
	}
	g.entries[key] = time.Time{}
	return true
}

// Release ends processing of key; repeats stay rejected until the delay passes.
func (g *InFlight) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[key]; !ok {
		return
	}
	if g.delay == 0 {
		delete(g.entries, key)
		return
	}
	g.entries[key] = g.now().Add(g.delay)
}

// Len returns the number of tracked keys, expired ones excluded.
func (g *InFlight) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(g.now())
	return len(g.entries)
}

func (g *InFlight) pruneLocked(now time.Time) {
	for k, exp := range g.entries {
		if !exp.IsZero() && !now.Before(exp) {
			delete(g.entries, k)
		}
	}
}
