package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print segment counts for the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}

			st := eng.ProjectStats()

			color.New(color.FgCyan, color.Bold).Println("📋 project stats")

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Total", "Translated", "Failed", "Skipped"})
			t.AppendRow(table.Row{st.Total, st.Translated, st.Failed, st.Skipped})
			t.Render()
			return nil
		},
	}
}
