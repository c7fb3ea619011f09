package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the key bindings of the shipment map.
type KeyMap struct {
	Quit       key.Binding
	SwitchView key.Binding
	Next       key.Binding
	Prev       key.Binding
	Clear      key.Binding
	Rotate     key.Binding
	Track      key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	Reload     key.Binding
	Help       key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		SwitchView: key.NewBinding(key.WithKeys("tab", "v"), key.WithHelp("tab", "globe/flat")),
		Next:       key.NewBinding(key.WithKeys("n", "j"), key.WithHelp("n/j", "next")),
		Prev:       key.NewBinding(key.WithKeys("N", "k"), key.WithHelp("N/k", "prev")),
		Clear:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Rotate:     key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "spin")),
		Track:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "track")),
		ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut:    key.NewBinding(key.WithKeys("-", "_")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←↑↓→", "orbit")),
		Right:      key.NewBinding(key.WithKeys("right", "l")),
		Up:         key.NewBinding(key.WithKeys("up")),
		Down:       key.NewBinding(key.WithKeys("down")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Track, k.Rotate, k.SwitchView, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Clear},
		{k.Track, k.Rotate, k.ZoomIn, k.Left},
		{k.SwitchView, k.Reload, k.Help, k.Quit},
	}
}
