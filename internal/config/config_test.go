package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moffa90/go-appk/extract"
)

func loadFrom(t *testing.T, opts LoadOptions) (*Config, string) {
	t.Helper()

	if opts.ConfigDirPath == "" && opts.ConfigFilePath == "" {
		opts.ConfigDirPath = t.TempDir()
	}
	cfg, path, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg, path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, path := loadFrom(t, LoadOptions{})

	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "appk.toml"), `
target = "riscv32"
apps_dir = "apps"
workers = 3

[loader]
max_apps = 4
allocator = "mmap"

[store]
dir = "/var/lib/appk"
`)

	cfg, path := loadFrom(t, LoadOptions{ConfigDirPath: dir})

	if path != filepath.Join(dir, "appk.toml") {
		t.Errorf("path = %q", path)
	}
	if cfg.Target != "riscv32" || cfg.AppsDir != "apps" || cfg.Workers != 3 {
		t.Errorf("top-level values = %+v", cfg)
	}
	if cfg.Loader.MaxApps != 4 || cfg.Loader.Allocator != AllocatorMmap {
		t.Errorf("Loader = %+v", cfg.Loader)
	}
	if cfg.Loader.MemoryBudget != 512*1024 {
		t.Errorf("MemoryBudget = %d, want default kept", cfg.Loader.MemoryBudget)
	}
	if cfg.Store.Dir != "/var/lib/appk" {
		t.Errorf("Store.Dir = %q", cfg.Store.Dir)
	}
}

func TestLoadPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, file, `
target = "riscv32"
output_dir = "from-file"

[loader]
max_apps = 4
`)

	t.Setenv("APPK_TARGET", "aarch64")
	t.Setenv("APPK_LOADER_MAX_APPS", "8")

	cfg, _ := loadFrom(t, LoadOptions{
		ConfigFilePath: file,
		Overrides:      map[string]any{"loader.max_apps": 2},
	})

	if cfg.Target != "aarch64" {
		t.Errorf("Target = %q, want env value", cfg.Target)
	}
	if cfg.OutputDir != "from-file" {
		t.Errorf("OutputDir = %q, want file value", cfg.OutputDir)
	}
	if cfg.Loader.MaxApps != 2 {
		t.Errorf("MaxApps = %d, want override value", cfg.Loader.MaxApps)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := NewProvider().Load(context.Background(), LoadOptions{
			ConfigFilePath: filepath.Join(t.TempDir(), "nope.toml"),
		})
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed toml", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "bad.toml")
		writeFile(t, file, "target = [unterminated\n")
		_, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: file})
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "invalid.toml")
		writeFile(t, file, "target = \"mips\"\n[loader]\nallocator = \"stack\"\n")
		_, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: file})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("error = %v, want ErrInvalidConfig", err)
		}
		if !extract.IsUnsupportedTarget(err) {
			t.Errorf("error = %v, want UnsupportedTargetError in chain", err)
		}
		if !strings.Contains(err.Error(), "loader.allocator") {
			t.Errorf("error = %v, want allocator complaint", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"zero max apps", func(c *Config) { c.Loader.MaxApps = 0 }},
		{"zero budget", func(c *Config) { c.Loader.MemoryBudget = 0 }},
		{"empty apps dir", func(c *Config) { c.AppsDir = "  " }},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"zero store size", func(c *Config) { c.Store.MaxSize = 0 }},
		{"negative timeout", func(c *Config) { c.Download.TimeoutSeconds = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	data, err := Render(DefaultConfig())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, key := range []string{"target = ", "xtensa", "[loader]", "max_apps = 16", "[store]", "[download]"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("rendered config missing %q:\n%s", key, data)
		}
	}

	file := filepath.Join(t.TempDir(), "appk.toml")
	writeFile(t, file, string(data))

	cfg, _ := loadFrom(t, LoadOptions{ConfigFilePath: file})
	if *cfg != *DefaultConfig() {
		t.Errorf("round trip = %+v, want defaults", cfg)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "appk.toml")

	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Error("WriteDefault() overwrote an existing file")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("WriteDefault(force) error = %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "appk") {
		t.Errorf("ConfigDir() = %q", dir)
	}
}

func TestDefaultObjcopyFromEnv(t *testing.T) {
	t.Setenv("OBJCOPY", "xtensa-esp32s3-elf-objcopy")

	if got := DefaultConfig().Objcopy; !strings.Contains(got, "$OBJCOPY") {
		t.Errorf("Objcopy = %q, want $OBJCOPY command", got)
	}
}
