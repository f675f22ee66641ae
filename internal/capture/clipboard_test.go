package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/testutil"
)

type fakeClipboard struct {
	mu      sync.Mutex
	content Content
	err     error
}

func (f *fakeClipboard) Read(context.Context) (Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.err
}

func newPoller(clip Clipboard) *ClipboardPoller {
	return NewClipboardPoller(clip, 10*time.Millisecond, testutil.Logger())
}

func TestPoll_ImageData(t *testing.T) {
	data := testutil.PNG(t, 1)
	ev, ok := newPoller(&fakeClipboard{content: Content{Image: data}}).poll(context.Background())
	require.True(t, ok)
	assert.True(t, ev.InMemory())
	assert.Equal(t, data, ev.Data)
	assert.Equal(t, ClipboardPrefix, ev.Name)
	assert.Equal(t, "clipboard", ev.Source)
}

func TestPoll_FileListUsesFirstExisting(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteImage(t, dir, "diagram one.png", 2)

	clip := &fakeClipboard{content: Content{Files: []string{filepath.Join(dir, "gone.png"), path}}}
	ev, ok := newPoller(clip).poll(context.Background())
	require.True(t, ok)
	assert.Equal(t, "diagram one", ev.Name)
	assert.Equal(t, testutil.PNG(t, 2), ev.Data)
}

func TestPoll_IgnoredContent(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))

	cases := map[string]*fakeClipboard{
		"empty":       {},
		"error":       {err: errors.New("clipboard locked")},
		"not image":   {content: Content{Image: []byte("plain text")}},
		"text file":   {content: Content{Files: []string{txt}}},
		"no files":    {content: Content{Files: []string{filepath.Join(dir, "missing.png")}}},
		"unsupported": {err: apperr.ErrUnsupported},
	}
	for name, clip := range cases {
		_, ok := newPoller(clip).poll(context.Background())
		assert.False(t, ok, name)
	}
}

func TestClipboardPoller_RunEmitsEveryTick(t *testing.T) {
	clip := &fakeClipboard{content: Content{Image: testutil.PNG(t, 3)}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Event, 8)
	done := make(chan error, 1)
	go func() { done <- newPoller(clip).Run(ctx, out) }()

	for i := 0; i < 2; i++ {
		select {
		case <-out:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for clipboard event")
		}
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func fakeRun(responses map[string][]byte) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		key := strings.Join(append([]string{name}, args...), " ")
		if out, ok := responses[key]; ok {
			return out, nil
		}
		return nil, errors.New("unexpected command: " + key)
	}
}

func TestSystemClipboard_WaylandImage(t *testing.T) {
	c := &SystemClipboard{
		goos:   "linux",
		getenv: func(k string) string { return map[string]string{"WAYLAND_DISPLAY": "wayland-0"}[k] },
		run: fakeRun(map[string][]byte{
			"wl-paste --list-types":                  []byte("text/plain\nimage/png\n"),
			"wl-paste --no-newline --type image/png": []byte("PNGDATA"),
		}),
	}
	content, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), content.Image)
}

func TestSystemClipboard_X11FileList(t *testing.T) {
	c := &SystemClipboard{
		goos:   "linux",
		getenv: func(string) string { return "" },
		run: fakeRun(map[string][]byte{
			"xclip -selection clipboard -t TARGETS -o":       []byte("TARGETS\ntext/uri-list\n"),
			"xclip -selection clipboard -t text/uri-list -o": []byte("# copied\nfile:///tmp/a%20b.png\r\nhttps://example.com/x.png\n"),
		}),
	}
	content, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a b.png"}, content.Files)
}

func TestSystemClipboard_NothingUseful(t *testing.T) {
	c := &SystemClipboard{
		goos:   "linux",
		getenv: func(string) string { return "" },
		run: fakeRun(map[string][]byte{
			"xclip -selection clipboard -t TARGETS -o": []byte("UTF8_STRING\ntext/plain\n"),
		}),
	}
	content, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, content.Files)
	assert.Empty(t, content.Image)
}

func TestSystemClipboard_UnsupportedPlatform(t *testing.T) {
	c := &SystemClipboard{goos: "plan9", getenv: func(string) string { return "" }}
	_, err := c.Read(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrUnsupported))
}
