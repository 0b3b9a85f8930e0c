package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forge-run/forge/internal/pipeline"
)

// renderJobList renders one line per job: ID, status, a progress bar, and
// the attempt count when a job has retried, sorted by job ID for a stable
// display order across redraws.
func renderJobList(theme Theme, rs *pipeline.RunState, width int) string {
	if rs == nil || len(rs.Jobs) == 0 {
		return theme.HelpDesc.Render("no jobs yet")
	}

	ids := make([]string, 0, len(rs.Jobs))
	for id := range rs.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	const barWidth = 20
	var sb strings.Builder
	for _, id := range ids {
		js := rs.Jobs[id]
		fraction := jobFraction(js)
		bar := theme.ProgressBar(fraction, barWidth)
		statusLabel := theme.StatusStyle(string(js.Status)).Render(fmt.Sprintf("%-10s", js.Status))

		line := fmt.Sprintf("%-18s %s %s %3.0f%%", truncate(id, 18), statusLabel, bar, fraction*100)
		if js.Attempts > 1 {
			line += fmt.Sprintf("  (attempt %d)", js.Attempts)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// jobFraction returns a job's displayed completion fraction: terminal
// success/skip states render full regardless of the last reported Progress
// value, since Progress is an executor-reported hint that may lag or never
// reach 100 before the job actually completes.
func jobFraction(js *pipeline.JobState) float64 {
	switch js.Status {
	case pipeline.JobCompleted, pipeline.JobSkipped:
		return 1.0
	case pipeline.JobFailed, pipeline.JobCancelled:
		return float64(js.Progress) / 100.0
	default:
		return float64(js.Progress) / 100.0
	}
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}
