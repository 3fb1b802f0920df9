package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/saimonmoore/sonarqube/pkg/facet"
	"github.com/saimonmoore/sonarqube/pkg/model"
)

// Theme holds the colours every view renders with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	Base lipgloss.Style
}

// DefaultTheme returns the standard dracula-ish palette.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#9A9A9A"},
		Border:    lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF5555"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"})
	return t
}

// FacetStyles derives the sidebar facet styles from the theme.
func (t Theme) FacetStyles() facet.Styles {
	s := facet.DefaultStyles(t.Renderer)
	s.Header = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	s.Summary = t.Renderer.NewStyle().Foreground(t.Secondary)
	s.Cursor = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)
	s.SelectedItem = t.Renderer.NewStyle().Foreground(t.Secondary).Bold(true)
	s.Item = t.Base
	s.Count = t.Renderer.NewStyle().Foreground(t.Subtext)
	s.Spinner = t.Renderer.NewStyle().Foreground(t.Primary)
	return s
}

// SeverityColor returns the colour used for a severity badge.
func (t Theme) SeverityColor(s model.Severity) lipgloss.TerminalColor {
	switch s {
	case model.SeverityBlocker:
		return lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF5555"}
	case model.SeverityCritical:
		return lipgloss.AdaptiveColor{Light: "#D35400", Dark: "#FFB86C"}
	case model.SeverityMajor:
		return lipgloss.AdaptiveColor{Light: "#B7950B", Dark: "#F1FA8C"}
	case model.SeverityMinor:
		return t.Secondary
	default:
		return t.Subtext
	}
}
