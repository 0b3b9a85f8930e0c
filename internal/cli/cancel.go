package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forge-run/forge/internal/pipeline"
	"github.com/forge-run/forge/internal/store"
)

func newCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <runId>",
		Short: "Cancel a run",
		Long: `Cancel requests termination of a run.

When the run belongs to the same forge process (for example one started by
"forge dashboard" or a long-lived host embedding the engine), cancellation is
cooperative: running jobs are signalled and unwind within their own grace
window, and pending jobs move straight to CANCELLED.

When the run was started by a different "forge run" process, there is no
channel back into that process's scheduling loop, so this command falls back
to marking the persisted run CANCELLED directly in the state store. That
stops it from being reported as active and prevents "forge run --resume" from
picking it back up, but it cannot interrupt a job the other process still has
in flight -- the owning process must also observe the cancellation itself
(SIGINT/SIGTERM to "forge run" achieves that, since it cancels the run the
same way).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(cmd, args[0])
		},
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newCancelCmd())
}

func runCancel(cmd *cobra.Command, runID string) error {
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := newEngine(resolved)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}

	out := cmd.OutOrStdout()

	if engine.Cancel(runID) {
		fmt.Fprintf(out, "run %s: cancellation requested\n", runID)
		return nil
	}

	rs, serr := engine.Status(runID)
	if serr != nil {
		return fmt.Errorf("cancel: %w", serr)
	}
	if rs.Done() {
		fmt.Fprintf(out, "run %s is already %s, nothing to cancel\n", runID, rs.Status)
		return nil
	}

	st, serr2 := store.New(resolved.Config.Engine.StateDir)
	if serr2 != nil {
		return fmt.Errorf("cancel: opening state store: %w", serr2)
	}
	markCancelled(rs)
	if err := st.Save(rs); err != nil {
		return fmt.Errorf("cancel: persisting cancelled state: %w", err)
	}
	fmt.Fprintf(out, "run %s: marked cancelled in persisted state (no in-process owner found; a still-running \"forge run\" for this run must be interrupted directly)\n", runID)
	return nil
}

// markCancelled transitions every non-terminal job directly to CANCELLED,
// mirroring what scheduler.Engine.Cancel does for runs it owns in-process.
func markCancelled(rs *pipeline.RunState) {
	for _, js := range rs.Jobs {
		if !js.Status.Terminal() {
			js.Status = pipeline.JobCancelled
			js.SkipReason = pipeline.SkipCancelled
		}
	}
	rs.Status = pipeline.RunCancelled
}
