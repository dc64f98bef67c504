package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/appk"
	"github.com/moffa90/go-appk/loader"
)

const markdownWidth = 80

func newInspectCommand(app *App) *cobra.Command {
	var (
		offset   int64
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <package>",
		Short: "Show the header of a package",
		Long: `Decode a package header and report its fields and integrity.

With --offset the package is read from a raw partition image at the given
byte offset. With --markdown the report is rendered as a formatted document.`,
		Example: `  appk inspect build/apps/hello.bin
  appk inspect flash.img --offset 0x10000
  appk inspect hello.bin --markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pkg, err := readPackage(args[0], offset)
			if err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}

			rows := headerRows(pkg)
			if markdown {
				return renderMarkdown(app.stdout, pkg.Header.Name, rows)
			}

			fmt.Fprintln(app.stdout, TitleStyle.Render(pkg.Header.Name))
			for _, row := range rows {
				fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render(row[0]), row[1])
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", -1, "read the package from a partition image at this byte offset")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the report as markdown")

	return cmd
}

// readPackage decodes the package in path, or the one at offset within a
// partition image when offset is not negative.
func readPackage(path string, offset int64) (*appk.Package, error) {
	if offset < 0 {
		return appk.Parse(path)
	}

	rc, err := loader.OpenPartition(path, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return appk.ParseReader(rc)
}

func headerRows(pkg *appk.Package) [][2]string {
	h := pkg.Header

	integrity := "ok"
	if err := pkg.Verify(); err != nil {
		integrity = err.Error()
	}

	return [][2]string{
		{"name", h.Name},
		{"version", h.Version},
		{"author", h.Author},
		{"size", fmt.Sprintf("%d bytes", h.Size)},
		{"entry offset", fmt.Sprintf("0x%X", h.EntryOffset)},
		{"checksum", fmt.Sprintf("0x%08X (%s)", h.Checksum, h.ChecksumAlgorithm)},
		{"total", fmt.Sprintf("%d bytes", pkg.Size())},
		{"integrity", integrity},
	}
}

func renderMarkdown(w io.Writer, title string, rows [][2]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | `%s` |\n", row[0], strings.ReplaceAll(row[1], "|", "\\|"))
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := renderer.Render(b.String())
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
