package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorSubtle  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
)

// Theme holds the lipgloss styles used across the dashboard's panels. No
// style sets Width/Height -- those are applied at render time by the layout.
type Theme struct {
	TitleBar     lipgloss.Style
	TitleText    lipgloss.Style
	TitleVersion lipgloss.Style

	PanelBorder lipgloss.Style
	PanelTitle  lipgloss.Style

	JobID      lipgloss.Style
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	EventTimestamp lipgloss.Style
	EventMessage   lipgloss.Style

	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style

	StatusPending   lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusSucceeded lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusSkipped   lipgloss.Style
	StatusCancelled lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

// DefaultTheme returns the dashboard's default styling.
func DefaultTheme() Theme {
	return Theme{
		TitleBar: lipgloss.NewStyle().Bold(true).Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1),
		TitleText:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")),
		TitleVersion: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#E0DFFF", Dark: "#C4C2FF"}),

		PanelBorder: lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(ColorBorder).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1),

		JobID:          lipgloss.NewStyle().Bold(true),
		ProgressFilled: lipgloss.NewStyle().Foreground(ColorAccent),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(ColorSubtle),

		EventTimestamp: lipgloss.NewStyle().Foreground(ColorMuted),
		EventMessage:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}),

		StatusBar:   lipgloss.NewStyle().Background(lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}).Foreground(ColorMuted).Padding(0, 1),
		StatusKey:   lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		StatusValue: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#374151", Dark: "#D1D5DB"}),

		StatusPending:   lipgloss.NewStyle().Foreground(ColorMuted),
		StatusRunning:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
		StatusSucceeded: lipgloss.NewStyle().Foreground(ColorSuccess),
		StatusFailed:    lipgloss.NewStyle().Bold(true).Foreground(ColorError),
		StatusSkipped:   lipgloss.NewStyle().Foreground(ColorMuted),
		StatusCancelled: lipgloss.NewStyle().Foreground(ColorWarning),

		HelpKey:  lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		HelpDesc: lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// StatusStyle returns the style matching a pipeline.JobStatus/RunStatus
// string value, falling back to StatusPending for anything unrecognized.
func (t Theme) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "running", "queued", "retrying":
		return t.StatusRunning
	case "succeeded", "completed":
		return t.StatusSucceeded
	case "failed":
		return t.StatusFailed
	case "skipped":
		return t.StatusSkipped
	case "cancelled":
		return t.StatusCancelled
	default:
		return t.StatusPending
	}
}

// ProgressBar renders a text progress bar of the given width using block
// characters, with filled and empty segments styled independently.
func (t Theme) ProgressBar(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	empty := width - filled

	var sb strings.Builder
	if filled > 0 {
		sb.WriteString(t.ProgressFilled.Render(strings.Repeat("█", filled)))
	}
	if empty > 0 {
		sb.WriteString(t.ProgressEmpty.Render(strings.Repeat("░", empty)))
	}
	return sb.String()
}
