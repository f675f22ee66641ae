package internal

// Run modes.
const (
	ModeWatch     = "watch"
	ModeClipboard = "clipboard"
	ModeGenerate  = "generate"
	ModeSync      = "sync"
	ModeServe     = "serve"
	ModeMCP       = "mcp"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects what Run does. The default is ModeWatch.
func WithMode(mode string) Option {
	return func(a *application) {
		a.mode = mode
	}
}
