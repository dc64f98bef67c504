package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/internal/config"
	"github.com/moffa90/go-appk/loader"
)

// hostServiceBase is the first synthetic address handed out for services on
// a host, where no firmware symbols exist.
const hostServiceBase = 0x1000

func newLoadCommand(app *App) *cobra.Command {
	var (
		offset   int64
		start    bool
		services bool
	)

	cmd := &cobra.Command{
		Use:   "load <package>...",
		Short: "Validate and map packages through the loader",
		Long: `Run packages through the loader state sequence: header validation,
checksum validation and mapping into an executable region.

No application code is executed on the host; --start performs a dry-run
entry that checks the call is well formed.`,
		Example: `  appk load build/apps/hello.bin
  appk load flash.img --offset 0x10000 --start
  appk load a.bin b.bin --services`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.newLoader()
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			if services {
				printServices(app.stdout, l.Table())
			}

			failed := 0
			for _, path := range args {
				var loaded *loader.App
				if offset >= 0 {
					loaded, err = l.LoadPartition(cmd.Context(), path, offset)
				} else {
					loaded, err = l.LoadFile(cmd.Context(), path)
				}
				if err != nil {
					failed++
					fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render(markFail), path, err)
					continue
				}

				fmt.Fprintf(app.stdout, "%s %s %s\n",
					SuccessStyle.Render(markOK),
					PathStyle.Render(loaded.Name()),
					SubtitleStyle.Render(fmt.Sprintf("base 0x%X entry 0x%X", loaded.Base(), loaded.EntryAddress())),
				)

				if start {
					if err := l.Start(cmd.Context(), loaded); err != nil {
						failed++
						fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render(markFail), loaded.Name(), err)
						continue
					}
					fmt.Fprintf(app.stdout, "  %s returned\n", KeyStyle.Render("dry run"))
				}
			}

			u := l.Usage()
			fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render(
				fmt.Sprintf("%d/%d slots, %d/%d bytes", u.Apps, u.MaxApps, u.Bytes, u.Budget)))

			if failed > 0 {
				return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%d of %d packages failed to load", failed, len(args))}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", -1, "read packages from partition images at this byte offset")
	cmd.Flags().BoolVar(&start, "start", false, "dry-run the entry point after mapping")
	cmd.Flags().BoolVar(&services, "services", false, "list the service table")
	cmd.Flags().String("allocator", "", "region allocator (heap or mmap)")

	return cmd
}

// newLoader builds a loader from the configuration with a dry-run executor
// and synthetic service addresses.
func (a *App) newLoader() (*loader.Loader, error) {
	next := uintptr(hostServiceBase)
	table, err := loader.NewStandardTable(func(string) uintptr {
		addr := next
		next += 8
		return addr
	})
	if err != nil {
		return nil, err
	}

	var alloc loader.Allocator
	switch a.cfg.Loader.Allocator {
	case config.AllocatorMmap:
		alloc = loader.DefaultAllocator()
	default:
		alloc = loader.NewHeapAllocator(0)
	}

	logger := a.libLogger()
	return loader.New(alloc, table, loader.DryRun,
		loader.WithLogger(logger),
		loader.WithMaxApps(a.cfg.Loader.MaxApps),
		loader.WithMemoryBudget(a.cfg.Loader.MemoryBudget),
		loader.WithProgressCallback(func(p loader.Progress) {
			logger.Debug("state", "app", p.App, "state", p.State, "bytes", p.Bytes)
		}),
	)
}

func printServices(w io.Writer, table *loader.ServiceTable) {
	fmt.Fprintln(w, TitleStyle.Render("services"))
	for i, sym := range table.Symbols() {
		fmt.Fprintf(w, "  %3d %s %s\n", i, KeyStyle.Width(28).Render(sym.Name), SubtitleStyle.Render(sym.Kind.String()))
	}
}
