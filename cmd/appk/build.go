package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/builder"
	"github.com/moffa90/go-appk/extract"
)

func newBuildCommand(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "build [app]",
		Short: "Build application packages",
		Long: `Build one application, or every application with --all.

For each application appk reads <apps-dir>/<app>/<app>_app.<ext> for its
manifest, locates the compiled object under the build directory, extracts
its code and writes <output-dir>/<app>.bin.

With --all a failing application is reported and skipped; the command exits
with status 2 when anything was skipped.`,
		Example: `  appk build hello
  appk build --all --workers 4
  appk build hello --target esp32c3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				_ = cmd.Usage()
				return &ExitError{Code: ExitFailure, Err: errors.New("an application name or --all is required")}
			}
			if len(args) > 0 && all {
				return &ExitError{Code: ExitFailure, Err: errors.New("an application name and --all are mutually exclusive")}
			}

			p, err := app.pipeline()
			if err != nil {
				return err
			}

			if all {
				return runBuildAll(cmd, app, p)
			}
			return runBuildOne(cmd, app, p, args[0])
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "build every application")
	cmd.Flags().String("objcopy", "", "external objcopy command line ($OBJ and $OUT are set)")
	cmd.Flags().Bool("strict-indirect", false, "fail when an object calls system symbols directly")
	cmd.Flags().Int("workers", 0, "concurrent builds with --all (default: number of CPUs)")
	cmd.Flags().String("source-ext", "", "application source file extension")

	return cmd
}

func runBuildOne(cmd *cobra.Command, app *App, p *builder.Pipeline, name string) error {
	res, err := p.BuildApp(cmd.Context(), name)
	if err != nil {
		fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render(markFail), name, err)
		return &ExitError{Code: ExitFailure, Err: err}
	}
	printBuilt(app.stdout, res)
	return nil
}

func runBuildAll(cmd *cobra.Command, app *App, p *builder.Pipeline) error {
	report, err := p.BuildAll(cmd.Context())
	if err != nil && report == nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	for _, res := range report.Built {
		printBuilt(app.stdout, res)
	}
	for _, skip := range report.Skipped {
		fmt.Fprintf(app.stdout, "%s %s: %v\n", WarningStyle.Render(markWarn), skip.App, skip.Err)
	}

	summary := report.Summary()
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s: %w", summary, err)}
	}
	if !report.OK() {
		fmt.Fprintln(app.stdout, WarningStyle.Render(summary))
		return &ExitError{Code: ExitPartial, Err: fmt.Errorf("%s, %d skipped", summary, report.Failed())}
	}

	fmt.Fprintln(app.stdout, SuccessStyle.Render(summary))
	return nil
}

func printBuilt(w io.Writer, res *builder.AppResult) {
	fmt.Fprintf(w, "%s %s %s %s\n",
		SuccessStyle.Render(markOK),
		PathStyle.Render(res.App),
		SubtitleStyle.Render("->"),
		res.Output,
	)
	fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render("metadata"), res.Metadata)
	fmt.Fprintf(w, "  %s %d + %d = %d bytes\n", KeyStyle.Render("size"),
		res.Stats.HeaderSize, res.Stats.CodeSize, res.Stats.TotalSize)
	fmt.Fprintf(w, "  %s 0x%08X\n", KeyStyle.Render("checksum"), res.Stats.Checksum)

	method := string(res.Blob.Method)
	if res.Blob.Fallback() {
		method = WarningStyle.Render(method + " (no compiled object)")
	}
	fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render("method"), method)
}

// extractor builds the code extractor for the configured target.
func (a *App) extractor() (*extract.Extractor, error) {
	target, err := extract.LookupTarget(a.cfg.Target)
	if err != nil {
		return nil, &ExitError{Code: ExitFailure, Err: err}
	}
	return extract.New(target,
		extract.WithLogger(a.libLogger()),
		extract.WithObjcopy(a.cfg.Objcopy),
		extract.WithStrictIndirect(a.cfg.StrictIndirect),
	), nil
}

func (a *App) pipeline() (*builder.Pipeline, error) {
	ex, err := a.extractor()
	if err != nil {
		return nil, err
	}
	return builder.NewPipeline(ex,
		builder.WithAppsDir(a.cfg.AppsDir),
		builder.WithBuildDir(a.cfg.BuildDir),
		builder.WithOutputDir(a.cfg.OutputDir),
		builder.WithSourceExt(a.cfg.SourceExt),
		builder.WithWorkers(a.cfg.Workers),
		builder.WithLogger(a.libLogger()),
	), nil
}
