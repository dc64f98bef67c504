package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/internal/config"
)

// newConfigCommand creates the `appk config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage appk configuration",
		Long: `Manage appk configuration.

Configuration is read, in increasing precedence, from built-in defaults,
./appk.toml or $XDG_CONFIG_HOME/appk/appk.toml, APPK_* environment
variables and command-line flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := config.Render(app.cfg)
			if err != nil {
				return err
			}
			source := app.cfgPath
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(app.stdout, "# source: %s\n%s", source, data)
			return nil
		},
	})

	var (
		force    bool
		initPath string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := initPath
			if path == "" {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)
			}
			if err := config.WriteDefault(path, force); err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}
			fmt.Fprintf(app.stdout, "%s wrote %s\n", SuccessStyle.Render(markOK), PathStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&initPath, "path", "", "file to write (default is $XDG_CONFIG_HOME/appk/appk.toml)")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if app.cfgPath == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("no config file (using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, app.cfgPath)
			return nil
		},
	})

	return cfgCmd
}
