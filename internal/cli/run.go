package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start (or resume from IDLE) translating the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}

			if err := eng.Start(context.Background()); err != nil {
				return err
			}

			return streamUntilTerminal(eng)
		},
	}
}

func newPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause translation after in-flight segments finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}
			if err := eng.Pause(); err != nil {
				return err
			}
			color.New(color.FgYellow).Println("⏸  pause requested")
			return nil
		},
	}
}

func newResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, _, err := openEngine()
			if err != nil {
				return err
			}
			if err := eng.Resume(); err != nil {
				return err
			}
			return streamUntilTerminal(eng)
		},
	}
}

// streamUntilTerminal follows subscribeToProjectStats/subscribeToEngineState
// with a pterm spinner, updating its text on each stats change, until the engine
// reaches a terminal state (COMPLETED, ERROR, PAUSED, QUOTA_PAUSED).
func streamUntilTerminal(eng engineLike) error {
	statsSub := eng.SubscribeToProjectStats()
	defer statsSub.Close()
	stateSub := eng.SubscribeToEngineState()
	defer stateSub.Close()

	spinner, _ := pterm.DefaultSpinner.Start("translating...")

	for {
		select {
		case st := <-statsSub.C():
			spinner.UpdateText(fmt.Sprintf("translated %d/%d (failed %d, skipped %d)",
				st.Translated, st.Total, st.Failed, st.Skipped))
		case state := <-stateSub.C():
			switch state {
			case model.StateCompleted:
				spinner.Success("translation complete")
				return nil
			case model.StateError:
				spinner.Fail("translation stopped on error")
				return nil
			case model.StatePaused:
				spinner.Warning("paused")
				return nil
			case model.StateQuotaPaused:
				spinner.Warning("paused: quota exhausted")
				return nil
			}
		}
	}
}
