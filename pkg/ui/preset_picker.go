package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/saimonmoore/sonarqube/pkg/preset"
)

// ApplyPresetMsg asks the browser to replace its selections with a preset.
type ApplyPresetMsg struct {
	Name string
}

// PresetPickerModel provides a quick preset selection modal
type PresetPickerModel struct {
	presets       []preset.Summary
	current       string // Name of the preset last applied
	selectedIndex int    // Which preset is highlighted
	width         int
	height        int
	theme         Theme
}

// NewPresetPickerModel creates a new preset picker with current highlighted.
func NewPresetPickerModel(presets []preset.Summary, current string, theme Theme) PresetPickerModel {
	selectedIdx := 0
	for i, p := range presets {
		if p.Name == current {
			selectedIdx = i
			break
		}
	}

	return PresetPickerModel{
		presets:       presets,
		current:       current,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *PresetPickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *PresetPickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *PresetPickerModel) MoveDown() {
	if m.selectedIndex < len(m.presets)-1 {
		m.selectedIndex++
	}
}

// SelectedPreset returns the name of the highlighted preset
func (m *PresetPickerModel) SelectedPreset() string {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.presets) {
		return m.presets[m.selectedIndex].Name
	}
	return ""
}

// View renders the preset picker overlay
func (m *PresetPickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 50
	if m.width < 60 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}
	// Border and padding take six columns.
	inner := boxWidth - 6

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Apply Preset"))
	lines = append(lines, "")

	if len(m.presets) == 0 {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Subtext).Italic(true).Render("No presets"))
	}

	descStyle := t.Renderer.NewStyle().Foreground(t.Subtext)
	for i, p := range m.presets {
		isSelected := i == m.selectedIndex

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		suffix := ""
		if p.Name == m.current {
			checkStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
			suffix = " " + checkStyle.Render("✓")
		}
		if p.Source == preset.SourceUser {
			suffix += descStyle.Render(" (user)")
		}

		lines = append(lines, itemStyle.Render(prefix+p.Name)+suffix)
		if p.Description != "" {
			lines = append(lines, descStyle.Render("    "+runewidth.Truncate(p.Description, inner-4, "…")))
		}
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: apply | esc: cancel"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(content),
	)
}
