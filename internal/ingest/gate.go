package ingest

import (
	"context"
	"log/slog"
	"os"
	"time"
)

const (
	DefaultStableInterval = 350 * time.Millisecond
	DefaultStableTimeout  = 10 * time.Second
)

// Gate waits for a file to stop growing before it is read.
type Gate struct {
	Interval time.Duration
	Timeout  time.Duration

	logger *slog.Logger
	size   func(path string) int64
}

// NewGate creates a Gate; non-positive durations fall back to the defaults.
func NewGate(interval, timeout time.Duration, logger *slog.Logger) *Gate {
	if interval <= 0 {
		interval = DefaultStableInterval
	}
	if timeout <= 0 {
		timeout = DefaultStableTimeout
	}
	return &Gate{Interval: interval, Timeout: timeout, logger: logger, size: fileSize}
}

// Wait polls the size of path until two consecutive reads agree on a
// non-zero size. It returns false when Timeout elapses first or ctx is
// cancelled; the caller proceeds with the file either way.
func (g *Gate) Wait(ctx context.Context, path string) bool {
	deadline := time.Now().Add(g.Timeout)
	last := g.size(path)

	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		cur := g.size(path)
		if cur > 0 && cur == last {
			return true
		}
		last = cur

		if !time.Now().Before(deadline) {
			g.logger.Warn("gate: file not stable before timeout",
				slog.String("path", path),
				slog.Duration("timeout", g.Timeout),
				slog.Int64("size", cur))
			return false
		}
	}
}

// fileSize returns -1 for files that cannot be stat'ed.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
