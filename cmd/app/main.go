package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/envisage/internal"
	pkgconfig "github.com/starford/envisage/pkg/config"
)

// loadConfig reads the config file (defaults when it is absent) and applies
// flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("dir") {
		cfg.Watch.Dir = cmd.String("dir")
	}
	if cmd.IsSet("tesseract-cmd") {
		cfg.OCR.Command = cmd.String("tesseract-cmd")
	}
	if cmd.IsSet("interval") {
		cfg.Clipboard.Interval = cmd.Duration("interval")
	}
	if cmd.IsSet("remote") {
		cfg.Git.Remote = cmd.String("remote")
	}
	if cmd.IsSet("branch") {
		cfg.Git.Branch = cmd.String("branch")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runMode(mode string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "envisage",
		Usage:  "Turn screenshots into searchable OCR notes, publish them as a static site and push them to git",
		Action: runMode(internal.ModeWatch),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Screenshot directory to watch",
			},
			&cli.StringFlag{
				Name:    "tesseract-cmd",
				Usage:   "Tesseract executable",
				Sources: cli.EnvVars("TESSERACT_CMD"),
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Clipboard polling interval",
			},
			&cli.StringFlag{
				Name:    "remote",
				Usage:   "Git remote to push to",
				Sources: cli.EnvVars("GIT_REMOTE"),
			},
			&cli.StringFlag{
				Name:    "branch",
				Usage:   "Git branch to push",
				Sources: cli.EnvVars("GIT_BRANCH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   internal.ModeWatch,
				Usage:  "Watch the screenshot directory and turn new images into notes (default)",
				Action: runMode(internal.ModeWatch),
			},
			{
				Name:   internal.ModeClipboard,
				Usage:  "Poll the system clipboard for images",
				Action: runMode(internal.ModeClipboard),
			},
			{
				Name:   internal.ModeGenerate,
				Usage:  "Rebuild the static site and the catalog once",
				Action: runMode(internal.ModeGenerate),
			},
			{
				Name:   internal.ModeSync,
				Usage:  "Commit and push pending note changes once",
				Action: runMode(internal.ModeSync),
			},
			{
				Name:   internal.ModeServe,
				Usage:  "Serve the site, the JSON API and live events over HTTP",
				Action: runMode(internal.ModeServe),
			},
			{
				Name:   internal.ModeMCP,
				Usage:  "Serve the note tools over MCP on stdio",
				Action: runMode(internal.ModeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
