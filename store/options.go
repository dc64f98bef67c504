package store

import (
	"net/http"
	"time"
)

// DefaultMaxSize is the largest package file a Store accepts (1 MiB).
const DefaultMaxSize = 1024 * 1024

// Config holds the store configuration.
type Config struct {
	// MaxSize is the largest package file accepted, in bytes
	MaxSize int64

	// Logger is used for logging operations (optional)
	Logger Logger
}

func defaultConfig() Config {
	return Config{MaxSize: DefaultMaxSize}
}

// Option is a functional option for configuring the Store.
type Option func(*Config)

// WithMaxSize sets the largest package file accepted.
func WithMaxSize(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

// WithLogger sets a logger for store operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DownloaderConfig holds the downloader configuration.
type DownloaderConfig struct {
	// Client performs the requests
	Client *http.Client

	// MaxSize is the largest response body accepted, in bytes
	MaxSize int64

	// StatusCallback is called as the download progresses (optional)
	StatusCallback StatusCallback

	// Logger is used for logging operations (optional)
	Logger Logger
}

func defaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{
		Client:  &http.Client{Timeout: 30 * time.Second},
		MaxSize: DefaultMaxSize,
	}
}

// DownloaderOption is a functional option for configuring the Downloader.
type DownloaderOption func(*DownloaderConfig)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(c *DownloaderConfig) {
		if client != nil {
			c.Client = client
		}
	}
}

// WithDownloadLimit sets the largest response body accepted.
func WithDownloadLimit(size int64) DownloaderOption {
	return func(c *DownloaderConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

// WithStatusCallback sets a callback that observes download progress.
//
// Example:
//
//	d := store.NewDownloader(
//	    store.WithStatusCallback(func(s store.Status) {
//	        fmt.Printf("%s %d%%\n", s.State, s.Percent)
//	    }),
//	)
func WithStatusCallback(callback StatusCallback) DownloaderOption {
	return func(c *DownloaderConfig) {
		c.StatusCallback = callback
	}
}

// WithDownloadLogger sets a logger for download operations.
func WithDownloadLogger(logger Logger) DownloaderOption {
	return func(c *DownloaderConfig) {
		c.Logger = logger
	}
}

// Logger is an optional logging interface, compatible with the other packages
// of this module.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
