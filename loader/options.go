package loader

import "github.com/moffa90/go-appk/appk"

// Config holds the loader configuration.
type Config struct {
	// ProgressCallback is called on each state transition (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// MaxApps is the number of applications that may be mapped at once
	MaxApps int

	// MemoryBudget is the total code bytes that may be mapped at once
	MemoryBudget int

	// MaxCodeSize bounds the code size accepted from a package header
	MaxCodeSize uint32
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		MaxApps:      16,
		MemoryBudget: 512 * 1024,
		MaxCodeSize:  appk.DefaultMaxCodeSize,
	}
}

// Option is a functional option for configuring the Loader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track state transitions.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for loader operations.
//
// Example:
//
//	l, err := loader.New(alloc, table, exec, loader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMaxApps sets the number of application slots. Default is 16.
func WithMaxApps(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxApps = n
		}
	}
}

// WithMemoryBudget sets the total bytes of code that may be mapped at once.
// Default is 512 KiB.
//
// Example:
//
//	l, err := loader.New(alloc, table, exec, loader.WithMemoryBudget(64*1024))
func WithMemoryBudget(bytes int) Option {
	return func(c *Config) {
		if bytes > 0 {
			c.MemoryBudget = bytes
		}
	}
}

// WithMaxCodeSize bounds the code size a header may declare. Default is 1 MiB.
func WithMaxCodeSize(size uint32) Option {
	return func(c *Config) {
		if size > 0 {
			c.MaxCodeSize = size
		}
	}
}
