// Package cmd contains all CLI commands for appk.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// flagKeys maps command-line flags onto config keys. A flag only overrides
// the configuration when it was set explicitly.
var flagKeys = map[string]string{
	"target":          "target",
	"apps-dir":        "apps_dir",
	"build-dir":       "build_dir",
	"output-dir":      "output_dir",
	"source-ext":      "source_ext",
	"objcopy":         "objcopy",
	"strict-indirect": "strict_indirect",
	"workers":         "workers",
	"store-dir":       "store.dir",
	"allocator":       "loader.allocator",
	"verbose":         "verbose",
}

// App carries the state shared by every command of one invocation.
type App struct {
	Provider config.Provider

	stdout io.Writer
	stderr io.Writer

	cfgFile string
	cfg     *config.Config
	cfgPath string
	logger  *log.Logger
}

// NewApp creates an App writing to the given streams.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{
		Provider: config.NewProvider(),
		stdout:   stdout,
		stderr:   stderr,
	}
}

// NewRootCommand builds the appk command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appk",
		Short: "Build, inspect and load dynamic application packages",
		Long: TitleStyle.Render("appk") + SubtitleStyle.Render(" - dynamic application packages for embedded hosts") + `

appk turns compiled application objects into APPK packages: a 128-byte
header carrying name, version, author, size, entry offset and checksum,
followed by a position-independent code blob.

` + SubtitleStyle.Render("Examples:") + `
  appk build hello          Build components/apps/hello into build/apps/hello.bin
  appk build --all          Build every application
  appk inspect hello.bin    Show a package header
  appk load hello.bin       Validate and map a package through the loader
  appk config show          Show the effective configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.loadConfig(cmd)
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.cfgFile, "config", "", "config file (default is ./appk.toml or $XDG_CONFIG_HOME/appk/appk.toml)")
	pf.BoolP("verbose", "v", false, "enable verbose output")
	pf.String("target", "", "target instruction set (xtensa, riscv32, arm-thumb, aarch64 or a chip alias)")
	pf.String("apps-dir", "", "applications source directory")
	pf.String("build-dir", "", "toolchain build directory")
	pf.String("output-dir", "", "package output directory")
	pf.String("store-dir", "", "package store directory")

	rootCmd.AddCommand(
		newBuildCommand(app),
		newInspectCommand(app),
		newVerifyCommand(app),
		newLoadCommand(app),
		newStoreCommand(app),
		newFetchCommand(app),
		newTargetsCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with the command's status.
// This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(os.Stdout, os.Stderr))

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// loadConfig resolves configuration for the running command, applying
// explicitly set flags on top of file and environment values.
func (a *App) loadConfig(cmd *cobra.Command) error {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if !cmd.Flags().Changed(name) {
			continue
		}
		overrides[key] = cmd.Flags().Lookup(name).Value.String()
	}

	cfg, path, err := a.Provider.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: a.cfgFile,
		Overrides:      overrides,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.cfgPath = path
	a.logger = newLogger(a.stderr, cfg.Verbose)
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

// libLogger returns the adapter handed to library packages.
func (a *App) libLogger() logAdapter {
	if a.logger == nil {
		a.logger = newLogger(a.stderr, false)
	}
	return logAdapter{l: a.logger}
}
