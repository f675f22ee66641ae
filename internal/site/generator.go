// Package site renders the notes directory into a static HTML site: one
// page per note plus an index sorted newest first.
package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/envisage/internal/markdown"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/parser"
	"github.com/starford/envisage/internal/stamp"
	"github.com/starford/envisage/internal/storage"
)

// DefaultTitle heads the index when no site title is configured.
const DefaultTitle = "ENVISAGE Notes"

// legacyTimestampKey is the creation key written by early note versions,
// holding a compact filename stamp.
const legacyTimestampKey = "timestamp_utc"

const (
	indexPage = "index.html"
	pagesDir  = "notes"
	missing   = "-"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// Entry is one row of the index.
type Entry struct {
	Title    string
	Created  string
	Source   string
	Topics   string
	Version  string
	Filename string
	// Page is the page file relative to the site root; Href is its escaped link.
	Page string
	Href string

	createdAt time.Time
}

// Report summarizes one generation run.
type Report struct {
	Pages       int
	Skipped     []string
	Pruned      []string
	GeneratedAt time.Time
}

type notePage struct {
	Entry
	OrigFilename string
	Body         template.HTML
	SiteTitle    string
	GeneratedAt  string
}

type indexData struct {
	Title       string
	Entries     []Entry
	GeneratedAt string
}

// Generator rebuilds the whole site on every call.
type Generator struct {
	notes    storage.Provider
	out      storage.Provider
	renderer markdown.Renderer
	logger   *slog.Logger
	title    string
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithTitle sets the site title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		if strings.TrimSpace(title) != "" {
			g.title = strings.TrimSpace(title)
		}
	}
}

// WithClock replaces the clock used for the generation timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator reading notes and writing the site.
func NewGenerator(notes, out storage.Provider, renderer markdown.Renderer, logger *slog.Logger, opts ...Option) *Generator {
	g := &Generator{
		notes:    notes,
		out:      out,
		renderer: renderer,
		logger:   logger,
		title:    DefaultTitle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders every note and rewrites the index. A note that cannot be
// read or rendered is logged and left out; only failures to list notes or to
// write the index abort the run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	names, err := g.notes.Names("", ".md")
	if err != nil {
		return nil, fmt.Errorf("site: list notes: %w", err)
	}

	generated := g.now().UTC()
	stampText := generated.Format(time.RFC3339)
	rep := &Report{GeneratedAt: generated}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := g.renderNote(name, stampText)
		if err != nil {
			g.logger.Warn("site: note skipped", slog.String("note", name), slog.String("error", err.Error()))
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		entries = append(entries, entry)
	}

	SortEntries(entries)

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html.tmpl", indexData{
		Title:       g.title,
		Entries:     entries,
		GeneratedAt: stampText,
	}); err != nil {
		return nil, fmt.Errorf("site: render index: %w", err)
	}
	if err := g.out.Write(indexPage, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("site: write index: %w", err)
	}

	rep.Pages = len(entries)
	rep.Pruned = g.prune(names)

	g.logger.Info("site: generated",
		slog.Int("pages", rep.Pages),
		slog.Int("skipped", len(rep.Skipped)),
		slog.Int("pruned", len(rep.Pruned)))
	return rep, nil
}

// renderNote writes the page for one note. Panics from the renderer are
// turned into errors so a single bad note cannot stop the run.
func (g *Generator) renderNote(name, generatedAt string) (entry Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("site: render %s: panic: %v", name, r)
		}
	}()

	data, err := g.notes.Read(name)
	if err != nil {
		return Entry{}, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return Entry{}, err
	}
	body, err := g.renderer.Render([]byte(res.Body))
	if err != nil {
		return Entry{}, err
	}

	entry = EntryFor(name, res)

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "note.html.tmpl", notePage{
		Entry:        entry,
		OrigFilename: res.Get(models.KeyOrigFilename, missing),
		Body:         template.HTML(body),
		SiteTitle:    g.title,
		GeneratedAt:  generatedAt,
	}); err != nil {
		return Entry{}, fmt.Errorf("site: render page %s: %w", name, err)
	}
	if err := g.out.Write(entry.Page, buf.Bytes()); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// EntryFor builds the index row for a parsed note file.
func EntryFor(name string, res *parser.Result) Entry {
	stem := strings.TrimSuffix(name, path.Ext(name))

	title := res.Title
	if title == "" {
		title = stem
	}

	created := res.Get(models.KeyCreatedUTC, "")
	if created == "" {
		created = res.Get(legacyTimestampKey, "")
	}
	createdAt, _ := stamp.ParseCreated(created)
	if created == "" {
		created = missing
	}

	return Entry{
		Title:     title,
		Created:   created,
		Source:    res.Get(models.KeySource, missing),
		Topics:    res.Get(models.KeyTopics, missing),
		Version:   res.Get(models.KeyVersion, missing),
		Filename:  name,
		Page:      path.Join(pagesDir, stem+".html"),
		Href:      pagesDir + "/" + url.PathEscape(stem+".html"),
		createdAt: createdAt,
	}
}

// SortEntries orders entries newest first. Entries without a parseable
// creation time sort last; ties keep their existing order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt.After(entries[j].createdAt)
	})
}

// prune deletes pages whose note no longer exists.
func (g *Generator) prune(noteNames []string) []string {
	keep := make(map[string]struct{}, len(noteNames))
	for _, n := range noteNames {
		keep[strings.TrimSuffix(n, path.Ext(n))+".html"] = struct{}{}
	}

	pages, err := g.out.Names(pagesDir, ".html")
	if err != nil {
		g.logger.Warn("site: list pages failed", slog.String("error", err.Error()))
		return nil
	}
	var pruned []string
	for _, p := range pages {
		if _, ok := keep[p]; ok {
			continue
		}
		if err := g.out.Delete(path.Join(pagesDir, p)); err != nil {
			g.logger.Warn("site: prune failed", slog.String("page", p), slog.String("error", err.Error()))
			continue
		}
		pruned = append(pruned, p)
	}
	return pruned
}
