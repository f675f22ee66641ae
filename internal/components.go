package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/envisage/internal/gitsync"
	"github.com/starford/envisage/internal/index"
	"github.com/starford/envisage/internal/ingest"
	"github.com/starford/envisage/internal/markdown"
	"github.com/starford/envisage/internal/note"
	"github.com/starford/envisage/internal/noteservice"
	"github.com/starford/envisage/internal/ocr"
	"github.com/starford/envisage/internal/pipeline"
	"github.com/starford/envisage/internal/site"
	"github.com/starford/envisage/internal/sse"
	"github.com/starford/envisage/internal/stamp"
	"github.com/starford/envisage/internal/storage"
)

// components is the wired object graph shared by every run mode.
type components struct {
	db       *index.DB
	broker   *sse.Broker
	pipeline *pipeline.Pipeline
	ingest   *ingest.Coordinator
	service  *noteservice.Service
}

func buildComponents(cfg *Config, logger *slog.Logger) (*components, error) {
	notes, err := storage.EnsureFS(cfg.Notes.Dir)
	if err != nil {
		return nil, fmt.Errorf("init notes storage: %w", err)
	}
	siteOut, err := storage.EnsureFS(cfg.Site.Dir)
	if err != nil {
		return nil, fmt.Errorf("init site storage: %w", err)
	}
	captures, err := storage.EnsureFS(cfg.Clipboard.Dir)
	if err != nil {
		return nil, fmt.Errorf("init captures storage: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, notes, logger); err != nil {
		logger.Warn("initial catalog sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)

	generator := site.NewGenerator(notes, siteOut,
		markdown.NewGoldmark(markdown.Options{HardWraps: true}),
		logger, site.WithTitle(cfg.Site.Title))

	pipeOpts := []pipeline.Option{
		pipeline.WithSite(generator),
		pipeline.WithCatalog(index.NewCatalog(db, notes, logger)),
		pipeline.WithNotify(broker.NotifyPipeline),
	}
	if cfg.Git.Enabled {
		syncer := gitsync.NewSyncer(gitsync.ExecRunner{}, cfg.Git.RepoDir, logger,
			gitsync.WithRemote(cfg.Git.Remote, cfg.Git.Branch),
			gitsync.WithExclude(runtimeExcludes(cfg)...))
		pipeOpts = append(pipeOpts, pipeline.WithVCS(syncer))
	}
	pipe := pipeline.New(logger, pipeOpts...)

	stamper := stamp.New(nil)
	builder := note.NewBuilder(notes, ocr.NewTesseract(cfg.OCR.Command, cfg.OCR.Config), logger,
		note.WithStamper(stamper),
		note.WithDefaults(cfg.Notes.Topics, cfg.Notes.Version))

	coordinator := ingest.New(builder, pipe, logger,
		ingest.WithGate(ingest.NewGate(cfg.Watch.StableInterval, cfg.Watch.StableTimeout, logger)),
		ingest.WithInFlight(ingest.NewInFlight(cfg.Watch.GuardDelay)),
		ingest.WithFingerprints(ingest.NewFingerprints(cfg.Clipboard.SeenCapacity)),
		ingest.WithQueueSize(cfg.Watch.QueueSize),
		ingest.WithCaptures(captures, stamper))

	return &components{
		db:       db,
		broker:   broker,
		pipeline: pipe,
		ingest:   coordinator,
		service:  noteservice.NewService(notes, db),
	}, nil
}

// runtimeExcludes lists the files the process itself rewrites on every run
// (catalog database, its journals, the log and its rotated backups) that sit
// inside the synced repository.
func runtimeExcludes(cfg *Config) []string {
	repo, err := filepath.Abs(cfg.Git.RepoDir)
	if err != nil {
		return nil
	}
	var out []string
	add := func(path string, patterns ...string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		rel, err := filepath.Rel(repo, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return
		}
		for _, p := range patterns {
			out = append(out, filepath.ToSlash(filepath.Join(filepath.Dir(rel), p)))
		}
	}

	db := filepath.Base(cfg.SQLite.Path)
	add(cfg.SQLite.Path, db, db+"-wal", db+"-shm", db+"-journal")

	logName := filepath.Base(cfg.App.LogFile)
	ext := filepath.Ext(logName)
	add(cfg.App.LogFile, strings.TrimSuffix(logName, ext)+"*"+ext)
	return out
}

func (c *components) Close() {
	c.broker.Close()
	_ = c.db.Close()
}
