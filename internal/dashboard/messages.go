package dashboard

import (
	"time"

	"github.com/forge-run/forge/internal/events"
	"github.com/forge-run/forge/internal/pipeline"
)

// runStateMsg carries a freshly-polled RunState snapshot into the model.
type runStateMsg struct {
	state *pipeline.RunState
	err   error
}

// busEventMsg wraps a single events.Event read off the Event Bus
// subscription channel.
type busEventMsg struct {
	event events.Event
}

// busClosedMsg signals the bus subscription channel was closed (the engine
// shut down, or Cancel()'s unsubscribe already ran).
type busClosedMsg struct{}

// tickMsg drives the periodic RunState poll; the dashboard mixes polling
// (for Progress/Attempts/Output, which no event carries verbatim) with the
// Event Bus (for the low-latency scrolling log).
type tickMsg time.Time

// eventLine is a rendered, already-formatted line in the scrolling event
// log, stored pre-formatted so View() stays a pure string join.
type eventLine struct {
	at   time.Time
	text string
}
