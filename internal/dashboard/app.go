// Package dashboard implements forge's live TUI: a bubbletea program that
// subscribes to the Event Bus for a single run, polls the Engine for the
// RunState fields no discrete event carries (per-job Progress, Attempts),
// and renders a per-job progress panel plus a scrolling event log.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/forge-run/forge/internal/events"
	"github.com/forge-run/forge/internal/pipeline"
)

// Engine is the slice of scheduler.Engine the dashboard depends on.
// Accepting it as an interface keeps this package free of an import-cycle
// risk and lets tests inject a fake.
type Engine interface {
	Status(runID string) (*pipeline.RunState, *pipeline.EngineError)
	Events() *events.Bus
	Cancel(runID string) bool
}

// AppConfig carries everything RunDashboard needs to launch the TUI for one
// run.
type AppConfig struct {
	Version string
	RunID   string
	Engine  Engine
	Ctx     context.Context
	Cancel  context.CancelFunc
}

// Model is the dashboard's bubbletea model.
type Model struct {
	theme Theme
	keys  KeyMap

	version string
	runID   string
	engine  Engine

	ctx        context.Context
	cancelFunc context.CancelFunc
	busCh      <-chan events.Event
	busCancel  func()

	state      *pipeline.RunState
	eventLines []eventLine
	lastErr    error

	width, height int
	showHelp      bool
	quitting      bool
}

// NewModel constructs the dashboard's initial Model and subscribes to the
// Engine's event bus. Callers must arrange for busCancel (returned by
// Subscribe) to run exactly once; Model.Update does so when the program
// quits.
func NewModel(cfg AppConfig) Model {
	busCh, busCancel := cfg.Engine.Events().Subscribe(events.Wildcard)
	return Model{
		theme:      DefaultTheme(),
		keys:       DefaultKeyMap(),
		version:    cfg.Version,
		runID:      cfg.RunID,
		engine:     cfg.Engine,
		ctx:        cfg.Ctx,
		cancelFunc: cfg.Cancel,
		busCh:      busCh,
		busCancel:  busCancel,
	}
}

// Init starts the poll/tick loop and begins draining the event bus
// subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollCmd(m.engine, m.runID),
		tickCmd(),
		busEventCmd(m.ctx, m.busCh),
	)
}

// Update handles bubbletea messages: window resizes, key presses, polled
// RunState snapshots, and Event Bus events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.busCancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.engine.Cancel(m.runID)
			return m, pollCmd(m.engine, m.runID)
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}
		return m, nil

	case runStateMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.state = msg.state
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tea.Batch(pollCmd(m.engine, m.runID), tickCmd())

	case busEventMsg:
		m.eventLines = appendEvent(m.eventLines, msg.event)
		if m.quitting {
			return m, nil
		}
		return m, busEventCmd(m.ctx, m.busCh)

	case busClosedMsg:
		return m, nil
	}

	return m, nil
}

// View renders the dashboard: a title bar, a job-status panel, a scrolling
// event log, and a status bar with the keybinding hints.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.renderTitleBar())
	sb.WriteString("\n\n")

	if m.lastErr != nil {
		sb.WriteString(m.theme.StatusFailed.Render(fmt.Sprintf("error reading run state: %v", m.lastErr)))
		sb.WriteString("\n\n")
	}

	jobsPanelWidth := m.panelWidth()
	sb.WriteString(m.theme.PanelTitle.Render("Jobs"))
	sb.WriteString("\n")
	sb.WriteString(m.theme.PanelBorder.Width(jobsPanelWidth).Render(renderJobList(m.theme, m.state, jobsPanelWidth)))
	sb.WriteString("\n\n")

	logHeight := m.eventLogHeight()
	sb.WriteString(m.theme.PanelTitle.Render("Events"))
	sb.WriteString("\n")
	sb.WriteString(m.theme.PanelBorder.Width(jobsPanelWidth).Render(renderEventLog(m.theme, m.eventLines, logHeight)))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderStatusBar())
	if m.showHelp {
		sb.WriteString("\n")
		sb.WriteString(m.renderHelp())
	}
	return sb.String()
}

func (m Model) renderTitleBar() string {
	title := fmt.Sprintf(" forge dashboard  %s ", m.runID)
	if m.version != "" {
		title += m.theme.TitleVersion.Render("v" + m.version)
	}
	return m.theme.TitleBar.Render(title)
}

func (m Model) renderStatusBar() string {
	status := "unknown"
	progress := 0
	if m.state != nil {
		status = string(m.state.Status)
		progress = computeProgress(m.state)
	}
	parts := []string{
		m.theme.StatusKey.Render("status") + " " + m.theme.StatusStyle(status).Render(status),
		m.theme.StatusKey.Render("progress") + " " + m.theme.StatusValue.Render(fmt.Sprintf("%d%%", progress)),
		m.theme.HelpKey.Render("q") + " " + m.theme.HelpDesc.Render("quit"),
		m.theme.HelpKey.Render("c") + " " + m.theme.HelpDesc.Render("cancel"),
		m.theme.HelpKey.Render("?") + " " + m.theme.HelpDesc.Render("help"),
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "   "))
}

func (m Model) renderHelp() string {
	lines := []string{
		m.keys.Quit.Help().Key + "  " + m.keys.Quit.Help().Desc,
		m.keys.Cancel.Help().Key + "  " + m.keys.Cancel.Help().Desc,
		m.keys.Help.Help().Key + "  " + m.keys.Help.Help().Desc,
	}
	return m.theme.HelpDesc.Render(strings.Join(lines, "\n"))
}

func (m Model) panelWidth() int {
	if m.width <= 0 {
		return 76
	}
	w := m.width - 4
	if w < 20 {
		return 20
	}
	return w
}

func (m Model) eventLogHeight() int {
	if m.height <= 0 {
		return 10
	}
	h := m.height/2 - 4
	if h < 5 {
		return 5
	}
	return h
}

// computeProgress mirrors scheduler.computeProgress: 100 * (completed +
// skipped) / total. Duplicated here (rather than exported from scheduler)
// since the dashboard already carries a full RunState snapshot and has no
// other reason to import scheduler's internals.
func computeProgress(rs *pipeline.RunState) int {
	total := len(rs.Jobs)
	if total == 0 {
		return 0
	}
	done := 0
	for _, js := range rs.Jobs {
		if js.Status == pipeline.JobCompleted || js.Status == pipeline.JobSkipped {
			done++
		}
	}
	return (100 * done) / total
}

// RunDashboard launches the TUI for cfg.RunID and blocks until the user
// quits or cfg.Ctx is cancelled.
func RunDashboard(cfg AppConfig) error {
	m := NewModel(cfg)
	p := tea.NewProgram(m, tea.WithContext(cfg.Ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
