package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/envisage/internal/gitsync"
	"github.com/starford/envisage/internal/ingest"
	"github.com/starford/envisage/internal/models"
	"github.com/starford/envisage/internal/ocr"
	"github.com/starford/envisage/internal/site"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Notes     NotesConfig       `yaml:"notes"`
	Site      SiteConfig        `yaml:"site"`
	Watch     WatchConfig       `yaml:"watch"`
	Clipboard ClipboardConfig   `yaml:"clipboard"`
	OCR       OCRConfig         `yaml:"ocr"`
	Git       GitConfig         `yaml:"git"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.Notes, &c.Site, &c.Watch, &c.Clipboard, &c.OCR, &c.Git, &c.SQLite, &c.Auth,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, if set, receives a copy of every log line and is rotated.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The server runs in serve mode,
// and next to the ingest loop when Enabled is set.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotesConfig locates the notes directory and the defaults written into
// every new note.
type NotesConfig struct {
	Dir     string `yaml:"dir"`
	Topics  string `yaml:"topics"`
	Version string `yaml:"version"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SiteConfig holds static site generation settings.
type SiteConfig struct {
	Dir   string `yaml:"dir"`
	Title string `yaml:"title"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// WatchConfig tunes the screenshot directory feed.
type WatchConfig struct {
	Dir            string        `yaml:"dir"`
	StableInterval time.Duration `yaml:"stable_interval"`
	StableTimeout  time.Duration `yaml:"stable_timeout"`
	GuardDelay     time.Duration `yaml:"guard_delay"`
	QueueSize      int           `yaml:"queue_size"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.StableInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.StableTimeout, validation.Required, validation.Min(c.StableInterval)),
		validation.Field(&c.GuardDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.QueueSize, validation.Required, validation.Min(1)),
	)
}

// ClipboardConfig tunes the clipboard feed. Dir receives the PNG form of
// every captured clipboard image.
type ClipboardConfig struct {
	Dir          string        `yaml:"dir"`
	Interval     time.Duration `yaml:"interval"`
	SeenCapacity int           `yaml:"seen_capacity"`
}

// Validate validates the clipboard configuration.
func (c *ClipboardConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Interval, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// OCRConfig selects the tesseract binary and its extra arguments.
type OCRConfig struct {
	Command string `yaml:"command"`
	Config  string `yaml:"config"`
}

// Validate validates the OCR configuration.
func (c *OCRConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
	)
}

// GitConfig controls the sync stage.
type GitConfig struct {
	Enabled bool   `yaml:"enabled"`
	RepoDir string `yaml:"repo_dir"`
	Remote  string `yaml:"remote"`
	Branch  string `yaml:"branch"`
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.RepoDir, validation.Required),
		validation.Field(&c.Remote, validation.Required),
		validation.Field(&c.Branch, validation.Required),
	)
}

// SQLiteConfig holds SQLite catalog configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notes: NotesConfig{
			Dir:     "./notes",
			Topics:  models.DefaultTopics,
			Version: models.DefaultVersion,
		},
		Site: SiteConfig{
			Dir:   "./site",
			Title: site.DefaultTitle,
		},
		Watch: WatchConfig{
			Dir:            "./screenshots",
			StableInterval: ingest.DefaultStableInterval,
			StableTimeout:  ingest.DefaultStableTimeout,
			GuardDelay:     ingest.DefaultGuardDelay,
			QueueSize:      ingest.DefaultQueueSize,
		},
		Clipboard: ClipboardConfig{
			Dir:          "./data/clipboard",
			Interval:     time.Second,
			SeenCapacity: ingest.DefaultSeenCapacity,
		},
		OCR: OCRConfig{
			Command: ocr.DefaultTesseractCommand,
		},
		Git: GitConfig{
			Enabled: true,
			RepoDir: ".",
			Remote:  gitsync.DefaultRemote,
			Branch:  gitsync.DefaultBranch,
		},
		SQLite: SQLiteConfig{
			Path: "./data/envisage.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
