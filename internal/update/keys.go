package update

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Dialogs
	Confirm key.Binding
	Dismiss key.Binding
	Close   key.Binding

	// Page
	ClearFlash key.Binding
	Reload     key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding

	// Application
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/Enter", "confirm"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/Esc", "dismiss"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "enter"),
			key.WithHelp("Esc", "close"),
		),
		ClearFlash: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear flash"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload panel"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reload, k.ClearFlash, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Confirm, k.Dismiss, k.Close},
		{k.Reload, k.ClearFlash, k.ScrollUp, k.ScrollDown},
		{k.Quit, k.ForceQuit},
	}
}

// DialogHelp is the help shown while a modal is open.
func (k KeyMap) DialogHelp(confirm bool) []key.Binding {
	if confirm {
		return []key.Binding{k.Confirm, k.Dismiss}
	}
	return []key.Binding{k.Close, k.ScrollUp, k.ScrollDown}
}
