// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/envisage/internal/api"
	"github.com/starford/envisage/internal/capture"
	"github.com/starford/envisage/internal/mcpserver"
	"github.com/starford/envisage/internal/pipeline"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeWatch}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger, closeLog := newLogger(cfg.App, app.mode)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", app.mode),
		slog.String("notes_dir", cfg.Notes.Dir),
		slog.String("site_dir", cfg.Site.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("git_enabled", cfg.Git.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	switch app.mode {
	case ModeGenerate:
		return reportRun(logger, "generate", comps.pipeline.Regenerate(ctx))
	case ModeSync:
		return reportRun(logger, "sync", comps.pipeline.SyncNow(ctx, api.DefaultSyncMessage))
	case ModeMCP:
		logger.Info("Starting MCP server on stdio")
		srv := mcpserver.New(comps.service, mcpserver.WithIngester(comps.ingest))
		return srv.ServeStdio()
	case ModeServe:
		return serve(ctx, cfg, comps, logger, nil)
	case ModeWatch:
		src := capture.NewWatcher(cfg.Watch.Dir, logger)
		return serve(ctx, cfg, comps, logger, src)
	case ModeClipboard:
		src := capture.NewClipboardPoller(capture.NewSystemClipboard(), cfg.Clipboard.Interval, logger)
		return serve(ctx, cfg, comps, logger, src)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

// serve runs the capture loop for src (if any) and the HTTP server (in serve
// mode, or when enabled) until ctx is cancelled or the source fails.
func serve(ctx context.Context, cfg *Config, comps *components, logger *slog.Logger, src capture.Source) error {
	g, gCtx := errgroup.WithContext(ctx)

	if src != nil {
		events := make(chan capture.Event)
		g.Go(func() error {
			defer close(events)
			if err := src.Run(gCtx, events); err != nil {
				return fmt.Errorf("capture source: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return comps.ingest.Run(gCtx, events)
		})
	}

	if src == nil || cfg.App.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newHTTPHandler(cfg, comps, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}

// newLogger builds the JSON logger. In MCP mode stdout carries the protocol,
// so logs go to stderr. A configured log file receives a rotated copy.
func newLogger(cfg ApplicationConfig, mode string) (*slog.Logger, func()) {
	var out io.Writer = os.Stdout
	if mode == ModeMCP {
		out = os.Stderr
	}

	closeLog := func() {}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 5,
			LocalTime:  true,
		}
		out = io.MultiWriter(out, file)
		closeLog = func() { _ = file.Close() }
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})), closeLog
}

func reportRun(logger *slog.Logger, name string, rep pipeline.Report) error {
	if len(rep.Stages) == 0 {
		logger.Warn(name + ": no stage configured")
		return nil
	}
	for _, st := range rep.Stages {
		attrs := []any{slog.String("stage", st.Name), slog.Duration("duration", st.Duration)}
		if st.Err != nil {
			logger.Error(name+": stage failed", append(attrs, slog.String("error", st.Err.Error()))...)
			continue
		}
		logger.Info(name+": stage done", attrs...)
	}
	if rep.Sync != nil {
		logger.Info(name+": sync", slog.String("result", rep.Sync.String()))
	}
	if !rep.OK() {
		return fmt.Errorf("%s: one or more stages failed", name)
	}
	return nil
}
