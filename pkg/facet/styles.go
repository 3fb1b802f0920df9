package facet

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles a facet renders with.
type Styles struct {
	Header       lipgloss.Style
	Summary      lipgloss.Style
	Hint         lipgloss.Style
	Item         lipgloss.Style
	SelectedItem lipgloss.Style
	Cursor       lipgloss.Style
	Count        lipgloss.Style
	Highlight    lipgloss.Style
	Muted        lipgloss.Style
	Spinner      lipgloss.Style
}

// DefaultStyles builds the default facet styles for the given renderer.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	primary := lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#BD93F9"}
	secondary := lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	subtext := lipgloss.AdaptiveColor{Light: "#666666", Dark: "#9A9A9A"}
	text := lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}

	return Styles{
		Header:       r.NewStyle().Foreground(primary).Bold(true),
		Summary:      r.NewStyle().Foreground(secondary),
		Hint:         r.NewStyle().Foreground(subtext).Italic(true),
		Item:         r.NewStyle().Foreground(text),
		SelectedItem: r.NewStyle().Foreground(secondary).Bold(true),
		Cursor:       r.NewStyle().Foreground(primary).Bold(true),
		Count:        r.NewStyle().Foreground(subtext),
		Highlight:    r.NewStyle().Underline(true).Bold(true),
		Muted:        r.NewStyle().Foreground(subtext).Italic(true),
		Spinner:      r.NewStyle().Foreground(primary),
	}
}
