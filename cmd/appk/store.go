package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/store"
)

func newStoreCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the local package store",
		Long: `Manage packages kept in the store directory.

Packages are verified before they are written and replaced atomically.`,
	}

	cmd.AddCommand(
		newStoreListCommand(app),
		newStorePutCommand(app),
		newStoreRemoveCommand(app),
		newStoreInfoCommand(app),
		newStoreFreeCommand(app),
	)

	return cmd
}

func newStoreListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored packages",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}

			entries, err := s.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("no packages in "+s.Dir()))
				return nil
			}

			for _, e := range entries {
				desc := WarningStyle.Render("not a package")
				if e.Header != nil {
					desc = fmt.Sprintf("v%s by %s", e.Header.Version, e.Header.Author)
				}
				fmt.Fprintf(app.stdout, "%s %8d  %s  %s\n",
					PathStyle.Render(fmt.Sprintf("%-24s", e.Name)),
					e.Size,
					SubtitleStyle.Render(e.InstalledAt.Format("2006-01-02 15:04")),
					desc,
				)
			}
			return nil
		},
	}
}

func newStorePutCommand(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "put <package>",
		Short: "Verify a package file and add it to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			entry, err := s.Save(name, data)
			if err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}
			fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render(markOK), PathStyle.Render(entry.Name), entry.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "store name (default is the file name without extension)")

	return cmd
}

func newStoreRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Remove a stored package",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			if err := s.Delete(args[0]); err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}
			fmt.Fprintf(app.stdout, "%s removed %s\n", SuccessStyle.Render(markOK), PathStyle.Render(args[0]))
			return nil
		},
	}
}

func newStoreInfoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show a stored package header",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			pkg, err := s.LoadPackage(args[0])
			if err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render(args[0]))
			for _, row := range headerRows(pkg) {
				fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render(row[0]), row[1])
			}
			return nil
		},
	}
}

func newStoreFreeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "free",
		Short: "Show free space available to the store",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := app.openStore()
			if err != nil {
				return err
			}
			free, err := s.FreeSpace()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s %d bytes free\n", KeyStyle.Render(s.Dir()), free)
			return nil
		},
	}
}

func (a *App) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Store.Dir,
		store.WithMaxSize(a.cfg.Store.MaxSize),
		store.WithLogger(a.libLogger()),
	)
}
