package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"

	"github.com/moffa90/go-appk/extract"
)

const (
	// AppName is the application name.
	AppName = "appk"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "appk"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix prefixes every environment override, e.g. APPK_TARGET.
	EnvPrefix = "APPK"

	// AllocatorHeap places code in Go heap memory.
	AllocatorHeap = "heap"
	// AllocatorMmap places code in sealed executable mappings.
	AllocatorMmap = "mmap"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete appk configuration.
type Config struct {
	Target         string `mapstructure:"target" toml:"target"`
	AppsDir        string `mapstructure:"apps_dir" toml:"apps_dir"`
	BuildDir       string `mapstructure:"build_dir" toml:"build_dir"`
	OutputDir      string `mapstructure:"output_dir" toml:"output_dir"`
	SourceExt      string `mapstructure:"source_ext" toml:"source_ext"`
	Workers        int    `mapstructure:"workers" toml:"workers"`
	Objcopy        string `mapstructure:"objcopy" toml:"objcopy"`
	StrictIndirect bool   `mapstructure:"strict_indirect" toml:"strict_indirect"`
	Verbose        bool   `mapstructure:"verbose" toml:"verbose"`

	Loader   LoaderConfig   `mapstructure:"loader" toml:"loader"`
	Store    StoreConfig    `mapstructure:"store" toml:"store"`
	Download DownloadConfig `mapstructure:"download" toml:"download"`
}

// LoaderConfig configures the application loader.
type LoaderConfig struct {
	MaxApps      int    `mapstructure:"max_apps" toml:"max_apps"`
	MemoryBudget int    `mapstructure:"memory_budget" toml:"memory_budget"`
	Allocator    string `mapstructure:"allocator" toml:"allocator"`
}

// StoreConfig configures package storage.
type StoreConfig struct {
	Dir     string `mapstructure:"dir" toml:"dir"`
	MaxSize int64  `mapstructure:"max_size" toml:"max_size"`
}

// DownloadConfig configures package downloads.
type DownloadConfig struct {
	TimeoutSeconds int   `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	MaxSize        int64 `mapstructure:"max_size" toml:"max_size"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Target:    "xtensa",
		AppsDir:   "components/apps",
		BuildDir:  "build",
		OutputDir: "build/apps",
		SourceExt: "c",
		Workers:   0,
		Objcopy:   defaultObjcopy(),
		Loader: LoaderConfig{
			MaxApps:      16,
			MemoryBudget: 512 * 1024,
			Allocator:    AllocatorHeap,
		},
		Store: StoreConfig{
			Dir:     "apps",
			MaxSize: 1024 * 1024,
		},
		Download: DownloadConfig{
			TimeoutSeconds: 30,
			MaxSize:        1024 * 1024,
		},
	}
}

// defaultObjcopy uses the conventional $OBJCOPY toolchain variable when the
// environment provides one.
func defaultObjcopy() string {
	if env.Has("OBJCOPY") {
		return `"$OBJCOPY" -O binary "$OBJ" "$OUT"`
	}
	return ""
}

// Validate checks values that cannot be expressed by types alone.
func (c *Config) Validate() error {
	var errs []error

	if _, err := extract.LookupTarget(c.Target); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.AppsDir) == "" {
		errs = append(errs, errors.New("apps_dir cannot be empty"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir cannot be empty"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Loader.MaxApps <= 0 {
		errs = append(errs, fmt.Errorf("loader.max_apps must be > 0, got %d", c.Loader.MaxApps))
	}
	if c.Loader.MemoryBudget <= 0 {
		errs = append(errs, fmt.Errorf("loader.memory_budget must be > 0, got %d", c.Loader.MemoryBudget))
	}
	switch c.Loader.Allocator {
	case AllocatorHeap, AllocatorMmap:
	default:
		errs = append(errs, fmt.Errorf("loader.allocator must be %q or %q, got %q",
			AllocatorHeap, AllocatorMmap, c.Loader.Allocator))
	}
	if c.Store.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("store.max_size must be > 0, got %d", c.Store.MaxSize))
	}
	if c.Download.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("download.timeout_seconds must be >= 0, got %d", c.Download.TimeoutSeconds))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Render encodes cfg as TOML.
func Render(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// ConfigDir returns the per-user configuration directory,
// $XDG_CONFIG_HOME/appk or ~/.config/appk.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir := env.Str("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// WriteDefault writes the default configuration to path. An existing file is
// left untouched unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := Render(DefaultConfig())
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
