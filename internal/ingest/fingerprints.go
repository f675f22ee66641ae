package ingest

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSeenCapacity bounds the fingerprint set when no capacity is configured.
const DefaultSeenCapacity = 1024

// Fingerprints remembers content fingerprints already turned into notes.
// The least recently seen entry is evicted once capacity is reached; a
// capacity of zero or less keeps every fingerprint for the session.
type Fingerprints struct {
	mu      sync.Mutex
	bounded *lru.Cache[string, struct{}]
	all     map[string]struct{}
}

// NewFingerprints creates an empty set.
func NewFingerprints(capacity int) *Fingerprints {
	if capacity <= 0 {
		return &Fingerprints{all: make(map[string]struct{})}
	}
	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		// Only a non-positive size is rejected, and that is handled above.
		panic(err)
	}
	return &Fingerprints{bounded: cache}
}

// Seen reports whether fp was recorded before. A hit refreshes fp's recency;
// a miss records it.
func (f *Fingerprints) Seen(fp string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bounded == nil {
		if _, ok := f.all[fp]; ok {
			return true
		}
		f.all[fp] = struct{}{}
		return false
	}

	if _, ok := f.bounded.Get(fp); ok {
		return true
	}
	f.bounded.Add(fp, struct{}{})
	return false
}

// Len returns the number of remembered fingerprints.
func (f *Fingerprints) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bounded == nil {
		return len(f.all)
	}
	return f.bounded.Len()
}
