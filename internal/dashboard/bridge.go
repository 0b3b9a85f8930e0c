package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forge-run/forge/internal/events"
	"github.com/forge-run/forge/internal/pipeline"
)

// pollInterval is how often the dashboard re-reads RunState from the
// Engine between Event Bus notifications, to pick up Progress/Attempts
// changes no discrete event carries.
const pollInterval = 500 * time.Millisecond

// statusReader is the minimal slice of scheduler.Engine the dashboard needs;
// accepting it as an interface lets tests inject a fake without building a
// real Engine.
type statusReader interface {
	Status(runID string) (*pipeline.RunState, *pipeline.EngineError)
}

// pollCmd returns a tea.Cmd that reads runID's current state once and
// reports it as a runStateMsg.
func pollCmd(reader statusReader, runID string) tea.Cmd {
	return func() tea.Msg {
		state, err := reader.Status(runID)
		if err != nil {
			return runStateMsg{err: err}
		}
		return runStateMsg{state: state}
	}
}

// tickCmd returns a tea.Cmd that fires once after pollInterval, driving the
// next poll/tick cycle.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// busEventCmd returns a tea.Cmd that reads a single Event from ch and
// forwards it as a busEventMsg, or a busClosedMsg if ch is closed or ctx is
// done. Callers re-issue this command after every busEventMsg to keep
// draining the subscription.
func busEventCmd(ctx context.Context, ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return busClosedMsg{}
		case ev, ok := <-ch:
			if !ok {
				return busClosedMsg{}
			}
			return busEventMsg{event: ev}
		}
	}
}
