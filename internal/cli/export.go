package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <out.epub>",
		Short: "Rewrite every content document with translated markup and write a new EPUB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}

			spinner, _ := pterm.DefaultSpinner.Start("reassembling archive...")
			archive, err := eng.Export(context.Background())
			if err != nil {
				spinner.Fail("export failed")
				return err
			}
			spinner.Success("archive reassembled")

			if err := os.WriteFile(args[0], archive, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}

			color.New(color.FgGreen, color.Bold).Printf("✅ wrote %s (%d bytes)\n", args[0], len(archive))
			return nil
		},
	}
}
