package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the browser-level keybindings. Keys inside a focused facet
// are handled by the facet's own KeyMap.
type KeyMap struct {
	Quit      key.Binding
	NextFocus key.Binding
	PrevFocus key.Binding
	Presets   key.Binding
	Reimport  key.Binding
	Up        key.Binding
	Down      key.Binding
	Open      key.Binding
	Back      key.Binding
	LoadMore  key.Binding
	Copy      key.Binding
	Help      key.Binding
}

// DefaultKeyMap returns the standard browser keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		NextFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		PrevFocus: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
		Presets:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "presets")),
		Reimport:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reimport")),
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
		Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		LoadMore:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more issues")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy key")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// helpLine renders bindings as "key desc • key desc".
func helpLine(t Theme, bindings ...key.Binding) string {
	keyStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
	descStyle := t.Renderer.NewStyle().Foreground(t.Subtext)

	var parts []string
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, keyStyle.Render(h.Key)+" "+descStyle.Render(h.Desc))
	}
	line := ""
	for i, p := range parts {
		if i > 0 {
			line += descStyle.Render(" • ")
		}
		line += p
	}
	return line
}
