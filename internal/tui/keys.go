package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the purchase view.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Settle    key.Binding
	Repay     key.Binding
	Archive   key.Binding
	Delete    key.Binding
	Edit      key.Binding
	NextStage key.Binding
	Refresh   key.Binding
	Quit      key.Binding

	// Edit dialog.
	Save   key.Binding
	Cancel key.Binding
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
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "select"),
	),
	ToggleAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all"),
	),
	Settle: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "settle"),
	),
	Repay: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "repay"),
	),
	Archive: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "archive"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit note"),
	),
	NextStage: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next stage"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Save: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.ToggleAll, k.Settle, k.Repay, k.Archive, k.Delete, k.Edit, k.NextStage, k.Quit}
}

// FullHelp returns every binding, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.ToggleAll},
		{k.Settle, k.Repay, k.Archive, k.Delete},
		{k.Edit, k.NextStage, k.Refresh, k.Quit},
	}
}
