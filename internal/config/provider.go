package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// Overrides are applied last, keyed by config path (e.g. "loader.max_apps").
	Overrides map[string]any
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load resolves configuration in increasing precedence: built-in defaults,
// the config file, APPK_* environment variables, then opts.Overrides.
// It returns the config and the path of the file used, empty when none.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, path, nil
}

// resolveConfigFile picks the explicit file, then ./appk.toml, then the file in
// the config directory. No file is not an error.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		return opts.ConfigFilePath, nil
	}

	local := ConfigFileName + "." + ConfigFileExt
	if fileExists(local) {
		return local, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}

	candidate := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(candidate) {
		return candidate, nil
	}
	return "", nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("target", d.Target)
	v.SetDefault("apps_dir", d.AppsDir)
	v.SetDefault("build_dir", d.BuildDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("source_ext", d.SourceExt)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("objcopy", d.Objcopy)
	v.SetDefault("strict_indirect", d.StrictIndirect)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("loader.max_apps", d.Loader.MaxApps)
	v.SetDefault("loader.memory_budget", d.Loader.MemoryBudget)
	v.SetDefault("loader.allocator", d.Loader.Allocator)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.max_size", d.Store.MaxSize)
	v.SetDefault("download.timeout_seconds", d.Download.TimeoutSeconds)
	v.SetDefault("download.max_size", d.Download.MaxSize)
}
