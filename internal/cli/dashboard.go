package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forge-run/forge/internal/buildinfo"
	"github.com/forge-run/forge/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard <runId>",
		Short: "Launch the live TUI for a run",
		Long: `Launch the interactive forge dashboard for an in-progress or completed run.

The dashboard subscribes to the Event Bus and polls the run's state to show
live per-job progress bars and a scrolling event log. Press q to quit, c to
cancel the run, and ? to toggle the keybinding help.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, args[0])
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newDashboardCmd())
}

func runDashboard(cmd *cobra.Command, runID string) error {
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	engine, err := newEngine(resolved)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	if _, serr := engine.Status(runID); serr != nil {
		return fmt.Errorf("dashboard: %w", serr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return dashboard.RunDashboard(dashboard.AppConfig{
		Version: buildinfo.GetInfo().Version,
		RunID:   runID,
		Engine:  engine,
		Ctx:     ctx,
		Cancel:  cancel,
	})
}
