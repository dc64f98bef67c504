package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-appk/extract"
)

func newTargetsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List supported targets and chip aliases",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, name := range extract.TargetNames() {
				t, err := extract.LookupTarget(name)
				if err != nil {
					return err
				}
				marker := " "
				if t.Name == name {
					marker = SuccessStyle.Render("*")
				}
				fmt.Fprintf(app.stdout, "%s %s %s\n", marker, KeyStyle.Render(name),
					SubtitleStyle.Render(fmt.Sprintf("%s, return % X", t.Name, t.Return)))
			}
			return nil
		},
	}
}
