package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the explorer TUI.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding // Open the selected category or product.
	Back    key.Binding // Return to the previous page.
	History key.Binding // Show the local activity log.
	Refresh key.Binding // Run the page's refresh coordinator.
	Retry   key.Binding // Refetch after a failed load.
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter", "l", "right"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace", "left"),
		key.WithHelp("esc", "back"),
	),
	History: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "history"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Retry: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "retry"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
