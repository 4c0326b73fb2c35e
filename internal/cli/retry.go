package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRetrySkippedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-skipped",
		Short: "Reset every SKIPPED segment back to PENDING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}
			if err := eng.RetrySkipped(); err != nil {
				return err
			}
			color.New(color.FgGreen).Println("🔄 skipped segments reset to pending")
			return nil
		},
	}
}
