package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/appk"
)

func newVerifyCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <package>...",
		Short: "Check package integrity",
		Long: `Verify the magic, size, entry offset and checksum of each package.

The command exits with status 1 when any package fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				pkg, err := appk.Parse(path)
				if err == nil {
					err = pkg.Verify()
				}
				if err != nil {
					failed++
					fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render(markFail), path, err)
					continue
				}
				fmt.Fprintf(app.stdout, "%s %s %s\n",
					SuccessStyle.Render(markOK),
					PathStyle.Render(path),
					SubtitleStyle.Render(fmt.Sprintf("%s v%s, %d bytes", pkg.Header.Name, pkg.Header.Version, pkg.Header.Size)),
				)
			}

			if failed > 0 {
				return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%d of %d packages failed verification", failed, len(args))}
			}
			return nil
		},
	}
}
