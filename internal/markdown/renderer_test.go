package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldmark_RendersAndEscapesRawHTML(t *testing.T) {
	r := NewGoldmark(Options{HardWraps: true})
	out, err := r.Render([]byte("# Title\nline one\nline two\n\n<script>alert(1)</script>\n"))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `<h1 id="title">Title</h1>`)
	assert.Contains(t, html, "<br")
	assert.False(t, strings.Contains(html, "<script>"), html)
}

func TestGoldmark_Deterministic(t *testing.T) {
	r := NewGoldmark(Options{})
	src := []byte("see https://example.com and ~~old~~\n")
	a, err := r.Render(src)
	require.NoError(t, err)
	b, err := r.Render(src)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCollectExtensions_UnknownIgnored(t *testing.T) {
	assert.Len(t, collectExtensions([]string{"table", "Table", "nope"}), 1)
	assert.Len(t, collectExtensions(nil), 2)
}
