package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type progressFlags struct {
	Watch bool
}

func newProgressCmd() *cobra.Command {
	var flags progressFlags

	cmd := &cobra.Command{
		Use:   "progress <runId>",
		Short: "Show a run's completion percentage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.Watch, "watch", "w", false, "Repaint every second until the run reaches a terminal state")
	return cmd
}

func init() {
	rootCmd.AddCommand(newProgressCmd())
}

func runProgress(cmd *cobra.Command, runID string, flags progressFlags) error {
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := newEngine(resolved)
	if err != nil {
		return fmt.Errorf("progress: %w", err)
	}

	out := cmd.OutOrStdout()

	for {
		rs, serr := engine.Status(runID)
		if serr != nil {
			return fmt.Errorf("progress: %w", serr)
		}

		fmt.Fprintln(out, renderRunProgress(rs))

		if !flags.Watch || rs.Done() {
			return nil
		}
		time.Sleep(time.Second)
	}
}
