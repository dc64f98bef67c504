package builder

import "runtime"

// Config holds the pipeline configuration.
type Config struct {
	// AppsDir contains one subdirectory per application
	AppsDir string

	// BuildDir is searched for compiled application objects
	BuildDir string

	// OutputDir receives the built <app>.bin packages
	OutputDir string

	// SourceExt is the extension of the application main source, without the dot
	SourceExt string

	// Workers bounds the number of concurrent builds in BuildAll
	Workers int

	// EventCallback is called as each application build starts and finishes (optional)
	EventCallback EventCallback

	// Logger is used for logging operations (optional)
	Logger Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		AppsDir:   "components/apps",
		BuildDir:  "build",
		OutputDir: "build/apps",
		SourceExt: "c",
		Workers:   runtime.NumCPU(),
	}
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Config)

// WithAppsDir sets the directory holding application sources.
func WithAppsDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.AppsDir = dir
		}
	}
}

// WithBuildDir sets the directory searched for compiled objects.
func WithBuildDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.BuildDir = dir
		}
	}
}

// WithOutputDir sets the directory built packages are written to.
//
// Example:
//
//	p := builder.NewPipeline(ex, builder.WithOutputDir("dist"))
func WithOutputDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.OutputDir = dir
		}
	}
}

// WithSourceExt sets the application source extension, e.g. "c" or "cpp".
func WithSourceExt(ext string) Option {
	return func(c *Config) {
		for len(ext) > 0 && ext[0] == '.' {
			ext = ext[1:]
		}
		if ext != "" {
			c.SourceExt = ext
		}
	}
}

// WithWorkers bounds concurrency in BuildAll. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithEventCallback sets a callback that observes per-application progress.
func WithEventCallback(callback EventCallback) Option {
	return func(c *Config) {
		c.EventCallback = callback
	}
}

// WithLogger sets a logger for pipeline operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
