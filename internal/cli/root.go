// Package cli is the cobra command tree spec §6 names: import, start,
// pause, resume, stats, retry-skipped, backup, restore, export. Each
// command is a thin adapter over internal/engine.Engine, grounded on this
// codebase's existing root-command wiring style (persistent config/debug
// flags; each subcommand builds its logger and engine through openEngine)
// and its stats command's colored-table reporting style.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/epub-translate/internal/config"
	"github.com/nerdneilsfield/epub-translate/internal/engine"
	"github.com/nerdneilsfield/epub-translate/internal/logger"
)

var (
	cfgFile   string
	debugMode bool
)

// NewRootCommand builds the epub-translate cobra command tree.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	root := &cobra.Command{
		Use:     "epub-translate",
		Short:   "Translate an EPUB book into another language with an LLM",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	root.AddCommand(
		newImportCommand(),
		newStartCommand(),
		newPauseCommand(),
		newResumeCommand(),
		newStatsCommand(),
		newRetrySkippedCommand(),
		newBackupCommand(),
		newRestoreCommand(),
		newExportCommand(),
	)

	return root
}

// openEngine loads configuration and builds an Engine, the shared
// bootstrap every subcommand needs. The zap logger and its log ring are
// returned alongside so a command can stream subscribeToLogs output.
func openEngine() (*engine.Engine, *zap.Logger, *logger.Ring, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if debugMode {
		cfg.Debug = true
	}

	log, ring := logger.New(cfg.Debug)
	eng, err := engine.New(cfg, log, ring)
	if err != nil {
		return nil, nil, nil, err
	}
	return eng, log, ring, nil
}

// fatal prints a red error line and exits non-zero, matching this
// codebase's existing CLI error-reporting convention.
func fatal(err error) {
	color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
