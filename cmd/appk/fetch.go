package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/store"
)

func newFetchCommand(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a package into the store",
		Long: `Download a package over HTTP, verify it and save it in the store.

The store name defaults to the last path element of the URL without its
extension.`,
		Example: `  appk fetch http://updates.local/apps/hello.bin
  appk fetch http://updates.local/latest --name hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				derived, err := nameFromURL(args[0])
				if err != nil {
					return &ExitError{Code: ExitFailure, Err: err}
				}
				name = derived
			}

			s, err := app.openStore()
			if err != nil {
				return err
			}

			logger := app.libLogger()
			d := store.NewDownloader(
				store.WithHTTPClient(&http.Client{Timeout: time.Duration(app.cfg.Download.TimeoutSeconds) * time.Second}),
				store.WithDownloadLimit(app.cfg.Download.MaxSize),
				store.WithDownloadLogger(logger),
				store.WithStatusCallback(func(st store.Status) {
					logger.Debug("download", "state", st.State, "received", st.BytesReceived, "total", st.TotalBytes, "percent", st.Percent)
				}),
			)

			entry, err := d.DownloadToStore(cmd.Context(), args[0], name, s)
			if err != nil {
				fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render(markFail), args[0], err)
				return &ExitError{Code: ExitFailure, Err: err}
			}

			fmt.Fprintf(app.stdout, "%s %s %s\n",
				SuccessStyle.Render(markOK),
				PathStyle.Render(entry.Name),
				SubtitleStyle.Render(fmt.Sprintf("%d bytes -> %s", entry.Size, entry.Path)),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "store name for the package")

	return cmd
}

func nameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("cannot derive a package name from %q; use --name", raw)
	}
	return base, nil
}
