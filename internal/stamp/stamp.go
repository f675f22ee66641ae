// Package stamp issues and parses the UTC timestamps embedded in note and
// capture filenames and in the created_utc field.
package stamp

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CreatedLayout formats the created_utc field: UTC, millisecond precision.
const CreatedLayout = "2006-01-02T15:04:05.000-07:00"

const filenameLayout = "20060102T150405"

// Stamper issues strictly increasing UTC timestamps at microsecond
// resolution, so filenames derived from them never collide within a process.
type Stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// New creates a Stamper; now defaults to time.Now.
func New(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

// Next returns the next timestamp. If the clock has not advanced past the
// previous stamp, the previous stamp plus one microsecond is returned.
func (s *Stamper) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Filename renders t as YYYYMMDDThhmmss_ffffffZ, which is safe on
// case-insensitive and colon-restricted file systems.
func Filename(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%06dZ", t.Format(filenameLayout), t.Nanosecond()/int(time.Microsecond))
}

// ParseFilename parses the output of Filename.
func ParseFilename(s string) (time.Time, error) {
	head, tail, ok := strings.Cut(s, "_")
	if !ok || len(tail) != 7 || !strings.HasSuffix(tail, "Z") {
		return time.Time{}, fmt.Errorf("stamp: malformed %q", s)
	}
	base, err := time.ParseInLocation(filenameLayout, head, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("stamp: malformed %q: %w", s, err)
	}
	micros, err := strconv.Atoi(tail[:6])
	if err != nil {
		return time.Time{}, fmt.Errorf("stamp: malformed %q: %w", s, err)
	}
	return base.Add(time.Duration(micros) * time.Microsecond), nil
}

// ParseCreated parses a creation timestamp as written by any version of the
// note writer: RFC 3339 with offset, naive ISO 8601 (taken as UTC), or the
// compact filename stamp used by legacy timestamp_utc fields.
func ParseCreated(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return t, true
	}
	if t, err := ParseFilename(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
