// Package markdown renders note bodies to HTML fragments.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown into an HTML fragment. Implementations must be
// deterministic for identical input.
type Renderer interface {
	Render(source []byte) ([]byte, error)
}

// Options tunes the goldmark engine.
type Options struct {
	// Extensions by name; empty selects gfm + linkify.
	Extensions []string
	// HardWraps keeps OCR line breaks visible.
	HardWraps bool
}

// Goldmark renders with the goldmark engine. Raw HTML in note bodies is
// never passed through: OCR output is untrusted text.
type Goldmark struct {
	engine goldmark.Markdown
}

// NewGoldmark builds a renderer once; the engine is safe for concurrent use.
func NewGoldmark(opts Options) *Goldmark {
	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	if opts.HardWraps {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(html.WithHardWraps()))
	}
	if exts := collectExtensions(opts.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}
	return &Goldmark{engine: goldmark.New(engineOptions...)}
}

// Render implements Renderer.
func (g *Goldmark) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"tasklist":      extension.TaskList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM, extension.Linkify}
	}
	var out []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ext)
	}
	return out
}
