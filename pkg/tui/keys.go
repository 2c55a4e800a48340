package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the terminal dashboard.
type KeyMap struct {
	Reconnect key.Binding
	Quit      key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Reconnect: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reconnect"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// bindings lists the bindings shown in the help line.
func (k KeyMap) bindings() []key.Binding {
	return []key.Binding{k.Reconnect, k.Quit}
}
