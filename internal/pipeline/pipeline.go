// Package pipeline runs the publish stages that follow a new note: site
// regeneration, catalog refresh and version-control sync. Each stage is
// isolated; a failing or panicking stage never prevents the next one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/envisage/internal/gitsync"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/site"
)

const (
	StageSite    = "site"
	StageCatalog = "catalog"
	StageSync    = "sync"
)

// SiteGenerator rebuilds the static site.
type SiteGenerator interface {
	Generate(ctx context.Context) (*site.Report, error)
}

// Catalog refreshes the searchable note catalog.
type Catalog interface {
	Sync(ctx context.Context) error
}

// VCS commits and pushes the working tree.
type VCS interface {
	Sync(ctx context.Context, message string) gitsync.Result
}

// NotifyFunc observes every finished run. rec is nil for runs not tied to
// a single note.
type NotifyFunc func(rec *models.NoteRecord, rep Report)

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report collects the stage outcomes of one run.
type Report struct {
	Stages []StageResult
	Site   *site.Report
	Sync   *gitsync.Result
}

// OK reports whether every stage that ran succeeded.
func (r Report) OK() bool {
	for _, s := range r.Stages {
		if s.Err != nil {
			return false
		}
	}
	return true
}

// Stage returns the result of the named stage, if it ran.
func (r Report) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Pipeline owns the stages. Runs are serialized so the notes directory, the
// site and the working tree have a single writer.
type Pipeline struct {
	mu      sync.Mutex
	site    SiteGenerator
	catalog Catalog
	vcs     VCS
	notify  []NotifyFunc
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSite enables the site stage.
func WithSite(g SiteGenerator) Option {
	return func(p *Pipeline) { p.site = g }
}

// WithCatalog enables the catalog stage.
func WithCatalog(c Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// WithVCS enables the sync stage.
func WithVCS(v VCS) Option {
	return func(p *Pipeline) { p.vcs = v }
}

// WithNotify registers an observer called after every run.
func WithNotify(fn NotifyFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.notify = append(p.notify, fn)
		}
	}
}

// New creates a Pipeline; stages without a collaborator are skipped.
func New(logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CommitMessage is the sync message used for a new note.
func CommitMessage(rec *models.NoteRecord) string {
	return "notes: add " + rec.Filename
}

// Publish runs every enabled stage for a freshly written note.
func (p *Pipeline) Publish(ctx context.Context, rec *models.NoteRecord) Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rep Report
	p.runSite(ctx, &rep)
	p.runCatalog(ctx, &rep)
	p.runSync(ctx, CommitMessage(rec), &rep)
	p.finish(rec, rep)
	return rep
}

// Regenerate rebuilds the site and the catalog without syncing.
func (p *Pipeline) Regenerate(ctx context.Context) Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rep Report
	p.runSite(ctx, &rep)
	p.runCatalog(ctx, &rep)
	p.finish(nil, rep)
	return rep
}

// SyncNow commits and pushes pending changes with message.
func (p *Pipeline) SyncNow(ctx context.Context, message string) Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rep Report
	p.runSync(ctx, message, &rep)
	p.finish(nil, rep)
	return rep
}

func (p *Pipeline) runSite(ctx context.Context, rep *Report) {
	if p.site == nil {
		return
	}
	rep.Stages = append(rep.Stages, p.stage(ctx, StageSite, func(ctx context.Context) error {
		sr, err := p.site.Generate(ctx)
		rep.Site = sr
		return err
	}))
}

func (p *Pipeline) runCatalog(ctx context.Context, rep *Report) {
	if p.catalog == nil {
		return
	}
	rep.Stages = append(rep.Stages, p.stage(ctx, StageCatalog, p.catalog.Sync))
}

func (p *Pipeline) runSync(ctx context.Context, message string, rep *Report) {
	if p.vcs == nil {
		return
	}
	rep.Stages = append(rep.Stages, p.stage(ctx, StageSync, func(ctx context.Context) error {
		res := p.vcs.Sync(ctx, message)
		rep.Sync = &res
		if res.OK {
			return nil
		}
		if res.Err != nil {
			return res.Err
		}
		return errors.New(res.Message)
	}))
}

// stage runs fn, converting a panic into the stage error.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) (res StageResult) {
	res.Name = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("pipeline: %s: panic: %v", name, r)
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			p.logger.Error("pipeline: stage failed", slog.String("stage", name), slog.String("error", res.Err.Error()))
		} else {
			p.logger.Debug("pipeline: stage done", slog.String("stage", name), slog.Duration("took", res.Duration))
		}
	}()
	res.Err = fn(ctx)
	return res
}

func (p *Pipeline) finish(rec *models.NoteRecord, rep Report) {
	for _, fn := range p.notify {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("pipeline: notify panic", slog.String("panic", fmt.Sprint(r)))
				}
			}()
			fn(rec, rep)
		}()
	}
}
