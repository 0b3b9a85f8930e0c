package dashboard

import (
	"fmt"
	"strings"

	"github.com/forge-run/forge/internal/events"
)

// maxEventLogLines bounds the scrolling event log so a long-running
// dashboard session doesn't grow memory unbounded; older lines are dropped
// as new ones arrive.
const maxEventLogLines = 500

// appendEvent formats ev and appends it to lines, trimming from the front
// once maxEventLogLines is exceeded.
func appendEvent(lines []eventLine, ev events.Event) []eventLine {
	lines = append(lines, eventLine{at: ev.Timestamp, text: formatEvent(ev)})
	if len(lines) > maxEventLogLines {
		lines = lines[len(lines)-maxEventLogLines:]
	}
	return lines
}

func formatEvent(ev events.Event) string {
	if ev.JobID != "" {
		return fmt.Sprintf("%-16s job=%s", ev.Type, ev.JobID)
	}
	return string(ev.Type)
}

// renderEventLog renders the last height lines of the event log, most
// recent at the bottom, matching a terminal scrollback's natural order.
func renderEventLog(theme Theme, lines []eventLine, height int) string {
	if len(lines) == 0 {
		return theme.HelpDesc.Render("waiting for events...")
	}

	start := 0
	if len(lines) > height {
		start = len(lines) - height
	}

	var sb strings.Builder
	for i, l := range lines[start:] {
		ts := theme.EventTimestamp.Render(l.at.Format("15:04:05.000"))
		sb.WriteString(ts)
		sb.WriteString(" ")
		sb.WriteString(theme.EventMessage.Render(l.text))
		if i < len(lines[start:])-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
