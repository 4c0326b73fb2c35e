package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.epub>",
		Short: "Import an EPUB, segment its content documents, and start a fresh project",
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

			project, err := eng.ImportProject(context.Background(), raw)
			if err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Printf("✅ imported %q\n", project.Title)
			fmt.Printf("   author:   %s\n", project.Author)
			fmt.Printf("   segments: %d\n", project.TotalSegments)
			fmt.Printf("   %s -> %s\n", project.SourceLang, project.TargetLang)
			return nil
		},
	}
}
