package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/forge-run/forge/internal/pipeline"
)

type statusFlags struct {
	JSON bool
}

func newStatusCmd() *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status <runId>",
		Short: "Show a run's per-job status and overall progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output the RunState as JSON")
	return cmd
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func runStatus(cmd *cobra.Command, runID string, flags statusFlags) error {
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := newEngine(resolved)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	rs, serr := engine.Status(runID)
	if serr != nil {
		return fmt.Errorf("status: %w", serr)
	}

	if flags.JSON {
		return printRunStateJSON(cmd.OutOrStdout(), rs)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderRunSummary(rs))
	fmt.Fprintln(out, renderRunProgress(rs))
	fmt.Fprint(out, renderJobTable(rs))
	return nil
}

// renderRunSummary returns a header naming the run, its pipeline, and its
// overall status.
//
//	Run run-1730000000000000000 - deploy-pipeline
//	=============================================
//	Status: running
func renderRunSummary(rs *pipeline.RunState) string {
	headerStyle := lipgloss.NewStyle().Bold(true)

	title := fmt.Sprintf("Run %s - %s", rs.RunID, rs.Pipeline)
	sep := strings.Repeat("=", len(title))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(sep)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Status: %s", statusStyle(string(rs.Status)).Render(string(rs.Status))))
	return sb.String()
}

// renderRunProgress returns a progress bar plus the completed/skipped
// fraction across all jobs in rs, mirroring spec's 100*(completed+skipped)/total
// formula.
func renderRunProgress(rs *pipeline.RunState) string {
	const barWidth = 40

	total := len(rs.Jobs)
	done := 0
	for _, js := range rs.Jobs {
		if js.Status == pipeline.JobCompleted || js.Status == pipeline.JobSkipped {
			done++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	barStr := bar.ViewAs(pct)

	return fmt.Sprintf("%s %.0f%% (%d/%d)", barStr, pct*100, done, total)
}

// renderJobTable returns a per-job status table sorted by job ID.
func renderJobTable(rs *pipeline.RunState) string {
	ids := make([]string, 0, len(rs.Jobs))
	for id := range rs.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		js := rs.Jobs[id]
		line := fmt.Sprintf("  %-24s %s", id, statusStyle(string(js.Status)).Render(string(js.Status)))
		if js.Attempts > 1 {
			line += fmt.Sprintf(" (attempt %d)", js.Attempts)
		}
		if js.SkipReason != pipeline.SkipNone {
			line += fmt.Sprintf(" [%s]", js.SkipReason)
		}
		if js.Error != nil {
			line += fmt.Sprintf(" - %s", js.Error.Message)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "succeeded", "completed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case "running", "queued", "retrying":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case "failed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	case "skipped", "cancelled":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	default:
		return lipgloss.NewStyle()
	}
}
