package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <out.mtj>",
		Short: "Write the current project and segments to a .mtj bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}

			bundle, err := eng.Backup()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], bundle, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}

			color.New(color.FgGreen).Printf("💾 wrote %s (%d bytes)\n", args[0], len(bundle))
			return nil
		},
	}
}

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <in.mtj>",
		Short: "Replace the current project and segments from a .mtj bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}

			if err := eng.Restore(context.Background(), raw); err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("♻️  restored project from %s\n", args[0])
			return nil
		},
	}
}
