package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	roots  []string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRoots appends vault root directories (typically from CLI arguments).
func WithRoots(roots ...string) Option {
	return func(a *application) {
		a.roots = append(a.roots, roots...)
	}
}
