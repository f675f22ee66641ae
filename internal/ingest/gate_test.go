package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/starford/envisage/internal/testutil"
)

func fastGate() *Gate {
	return NewGate(5*time.Millisecond, 100*time.Millisecond, testutil.Logger())
}

func TestGate_StableFile(t *testing.T) {
	path := testutil.WriteImage(t, t.TempDir(), "a.png", 1)
	assert.True(t, fastGate().Wait(context.Background(), path))
}

func TestGate_MissingFileTimesOut(t *testing.T) {
	start := time.Now()
	assert.False(t, fastGate().Wait(context.Background(), filepath.Join(t.TempDir(), "nope.png")))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestGate_EmptyFileNeverStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	assert.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.False(t, fastGate().Wait(context.Background(), path))
}

func TestGate_GrowingFileWaits(t *testing.T) {
	g := NewGate(time.Millisecond, time.Second, testutil.Logger())
	sizes := []int64{-1, 10, 20, 30, 30}
	i := 0
	g.size = func(string) int64 {
		s := sizes[min(i, len(sizes)-1)]
		i++
		return s
	}
	assert.True(t, g.Wait(context.Background(), "x"))
	assert.Equal(t, len(sizes), i)
}

func TestGate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, NewGate(time.Hour, time.Hour, testutil.Logger()).Wait(ctx, "x"))
}

func TestGate_Defaults(t *testing.T) {
	g := NewGate(0, -1, testutil.Logger())
	assert.Equal(t, DefaultStableInterval, g.Interval)
	assert.Equal(t, DefaultStableTimeout, g.Timeout)
}
