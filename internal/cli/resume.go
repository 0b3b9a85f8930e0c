package cli

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/forge-run/forge/internal/logging"
	"github.com/forge-run/forge/internal/store"
)

// runIDPattern validates that a --run value is a safe ID (not a file path).
var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type resumeFlags struct {
	RunID    string
	List     bool
	Clean    string
	CleanAll bool
	Force    bool
}

// newResumeCmd creates the "forge resume" command.
//
// This command is read-only with respect to execution: it lists and
// inspects persisted run snapshots and prunes old ones, but it never
// re-enters the scheduling loop. Restarting execution of a non-terminal
// run is an explicit, separate concern handled by "forge run --resume",
// which rebuilds the engine's in-memory runHandle from the snapshot and
// resumes scheduling from it.
func newResumeCmd() *cobra.Command {
	var flags resumeFlags

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Inspect and manage persisted run snapshots",
		Long: `List or inspect persisted run state, and delete old snapshots.

forge resume never restarts execution itself -- it only reads what the state
store has on disk. To re-enter the scheduling loop for a non-terminal run,
pass --resume to "forge run" instead.`,
		Example: `  # List all persisted runs
  forge resume --list

  # Show the persisted snapshot for one run
  forge resume --run run-1730000000000000000

  # Delete a specific snapshot
  forge resume --clean run-1730000000000000000

  # Delete all snapshots (prompts for confirmation)
  forge resume --clean-all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.RunID, "run", "", "Show the persisted snapshot for a specific run")
	cmd.Flags().BoolVar(&flags.List, "list", false, "List all persisted runs")
	cmd.Flags().StringVar(&flags.Clean, "clean", "", "Delete a specific run's persisted snapshot")
	cmd.Flags().BoolVar(&flags.CleanAll, "clean-all", false, "Delete all persisted run snapshots")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Skip the confirmation prompt for --clean-all")

	return cmd
}

func init() {
	rootCmd.AddCommand(newResumeCmd())
}

func runResume(cmd *cobra.Command, flags resumeFlags) error {
	if flags.RunID != "" && !runIDPattern.MatchString(flags.RunID) {
		return fmt.Errorf("resume: invalid run ID %q: only alphanumeric characters, hyphens, and underscores are allowed", flags.RunID)
	}
	if flags.Clean != "" && !runIDPattern.MatchString(flags.Clean) {
		return fmt.Errorf("resume: invalid run ID %q for --clean: only alphanumeric characters, hyphens, and underscores are allowed", flags.Clean)
	}

	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("resume: loading config: %w", err)
	}
	st, err := store.New(resolved.Config.Engine.StateDir)
	if err != nil {
		return fmt.Errorf("resume: opening state store: %w", err)
	}

	switch {
	case flags.List:
		return runResumeListMode(cmd, st)
	case flags.CleanAll:
		return runResumeCleanAllMode(cmd, st, flags.Force, os.Stdin)
	case flags.Clean != "":
		return runResumeCleanMode(st, flags.Clean)
	case flags.RunID != "":
		return runResumeShowMode(cmd, st, flags.RunID)
	default:
		return runResumeListMode(cmd, st)
	}
}

func runResumeListMode(cmd *cobra.Command, st *store.StateStore) error {
	summaries, err := st.List()
	if err != nil {
		return fmt.Errorf("resume: listing runs: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No persisted runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "RUN ID\tPIPELINE\tSTATUS\tJOBS\tLAST UPDATED")
	fmt.Fprintln(tw, "------\t--------\t------\t----\t------------")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.RunID, s.Pipeline, s.Status, s.JobCount, s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runResumeShowMode(cmd *cobra.Command, st *store.StateStore, runID string) error {
	rs, err := st.Load(runID)
	if err != nil {
		return fmt.Errorf("resume: loading run %q: %w", runID, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderRunSummary(rs))
	fmt.Fprintln(cmd.OutOrStdout(), renderRunProgress(rs))
	fmt.Fprint(cmd.OutOrStdout(), renderJobTable(rs))
	if !rs.Done() {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nrun %s is not terminal; use \"forge run --resume %s\" to continue scheduling it\n", rs.RunID, rs.RunID)
	}
	return nil
}

func runResumeCleanMode(st *store.StateStore, runID string) error {
	if err := st.Delete(runID); err != nil {
		return fmt.Errorf("resume: deleting snapshot for run %q: %w", runID, err)
	}
	logging.New("resume").Info("snapshot deleted", "run_id", runID)
	return nil
}

func runResumeCleanAllMode(cmd *cobra.Command, st *store.StateStore, force bool, stdin *os.File) error {
	if !force {
		if !isTerminal(stdin) {
			return fmt.Errorf("resume: --clean-all in non-interactive mode requires --force to confirm deletion of all snapshots")
		}

		var confirmed bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Delete all persisted run snapshots?").
					Affirmative("Delete all").
					Negative("Cancel").
					Value(&confirmed),
			),
		).WithTheme(huh.ThemeCharm()).Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("resume: confirmation prompt: %w", err)
		}
		if !confirmed {
			fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}

	summaries, err := st.List()
	if err != nil {
		return fmt.Errorf("resume: listing runs for clean-all: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No persisted run snapshots found.")
		return nil
	}

	logger := logging.New("resume")
	var deleteErr error
	deleted := 0
	for _, s := range summaries {
		if err := st.Delete(s.RunID); err != nil {
			logger.Error("failed to delete snapshot", "run_id", s.RunID, "error", err)
			deleteErr = err
			continue
		}
		deleted++
		logger.Info("snapshot deleted", "run_id", s.RunID)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %d snapshot(s).\n", deleted)
	return deleteErr
}

// isTerminal reports whether f is connected to a terminal (TTY).
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
