package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Tab      key.Binding

	// Selection
	Visual   key.Binding
	Select   key.Binding
	Deselect key.Binding

	// Chat
	Send         key.Binding
	NewLine      key.Binding
	Clear        key.Binding
	DefaultMode  key.Binding
	ToggleWidget key.Binding
	CtrlC        key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "b"),
		key.WithHelp("pgup", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", " "),
		key.WithHelp("pgdn", "scroll down"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "previous page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next page"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Visual: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "start selection"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", "y"),
		key.WithHelp("enter", "ask about selection"),
	),
	Deselect: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "deselect"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	NewLine: key.NewBinding(
		key.WithKeys("ctrl+j"),
		key.WithHelp("ctrl+j", "new line"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "new conversation"),
	),
	DefaultMode: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "default mode"),
	),
	ToggleWidget: key.NewBinding(
		key.WithKeys("ctrl+w"),
		key.WithHelp("ctrl+w", "show/hide chat"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "exit"),
	),
}
