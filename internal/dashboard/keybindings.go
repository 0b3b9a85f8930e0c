package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the dashboard's keybindings. There is only one panel
// layout (job list + event log), so unlike the teacher's multi-panel TUI
// there is no panel-focus cycling -- just quit, cancel, and help.
type KeyMap struct {
	Quit   key.Binding
	Cancel key.Binding
	Help   key.Binding
}

// DefaultKeyMap returns the dashboard's default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel run"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
