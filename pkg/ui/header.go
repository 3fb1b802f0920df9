package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Chip is one active facet selection shown in the header.
type Chip struct {
	Property string
	Value    string
}

// HeaderModel is the always-visible k9s-style header: a shortcut bar, a
// flowing row of selection chips and a title bar with the issue count.
type HeaderModel struct {
	chips  []Chip
	preset string
	total  int
	status string
	width  int
	theme  Theme
}

// NewHeader creates an empty header.
func NewHeader(theme Theme) HeaderModel {
	return HeaderModel{theme: theme}
}

// SetSize updates the header width.
func (m *HeaderModel) SetSize(w int) {
	m.width = w
}

// SetSelections replaces the chips with the given selections, ordered by
// property then value.
func (m *HeaderModel) SetSelections(selections map[string][]string) {
	props := make([]string, 0, len(selections))
	for p := range selections {
		props = append(props, p)
	}
	sort.Strings(props)

	m.chips = nil
	for _, p := range props {
		values := append([]string(nil), selections[p]...)
		sort.Strings(values)
		for _, v := range values {
			m.chips = append(m.chips, Chip{Property: p, Value: v})
		}
	}
}

// SetTitle updates the preset name and issue total in the title bar.
func (m *HeaderModel) SetTitle(preset string, total int) {
	m.preset = preset
	m.total = total
}

// SetStatus sets a transient status message shown in the shortcut bar.
func (m *HeaderModel) SetStatus(status string) {
	m.status = status
}

// Chips returns the current selection chips.
func (m HeaderModel) Chips() []Chip {
	return append([]Chip(nil), m.chips...)
}

// View renders the header.
func (m HeaderModel) View() string {
	w := m.width
	if w == 0 {
		w = 80
	}

	sections := []string{m.renderShortcutBar()}
	if len(m.chips) == 0 {
		dimStyle := m.theme.Renderer.NewStyle().
			Foreground(m.theme.Subtext).
			Italic(true)
		sections = append(sections, dimStyle.Render("  No filters"))
	} else {
		sections = append(sections, m.renderChips(w)...)
	}
	sections = append(sections, m.renderTitleBar(w))
	return strings.Join(sections, "\n")
}

// Height returns the number of terminal lines the header uses.
func (m HeaderModel) Height() int {
	w := m.width
	if w == 0 {
		w = 80
	}
	lines := 2 // shortcut bar and title bar
	if len(m.chips) == 0 {
		return lines + 1
	}
	return lines + len(m.chipRows(w))
}

func (m HeaderModel) renderShortcutBar() string {
	t := m.theme

	keyStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Bold(true)
	descStyle := t.Renderer.NewStyle().
		Foreground(t.Subtext)

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"<tab>", "Focus"},
		{"<p>", "Presets"},
		{"<y>", "Copy Key"},
		{"<r>", "Reimport"},
		{"<?>", "Help"},
		{"<q>", "Quit"},
	}

	var parts []string
	for _, s := range shortcuts {
		parts = append(parts, keyStyle.Render(s.key)+" "+descStyle.Render(s.desc))
	}
	line := " " + strings.Join(parts, "  ")
	if m.status != "" {
		line += "  " + t.Renderer.NewStyle().Foreground(t.Primary).Italic(true).Render(m.status)
	}
	return line
}

// renderTitleBar renders issues(preset)[count] centred between rules.
func (m HeaderModel) renderTitleBar(w int) string {
	t := m.theme

	label := "issues"
	if m.preset != "" {
		label = fmt.Sprintf("issues(%s)", m.preset)
	}
	count := fmt.Sprintf("[%d]", m.total)

	title := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(label) +
		t.Renderer.NewStyle().Foreground(t.Secondary).Render(count)

	titleLen := runewidth.StringWidth(label) + runewidth.StringWidth(count)
	leftPad := (w - titleLen - 4) / 2
	rightPad := w - titleLen - 4 - leftPad
	if leftPad < 1 {
		leftPad = 1
	}
	if rightPad < 1 {
		rightPad = 1
	}

	sepStyle := t.Renderer.NewStyle().Foreground(t.Border)
	return sepStyle.Render(strings.Repeat("─", leftPad)) + " " + title + " " + sepStyle.Render(strings.Repeat("─", rightPad))
}

func chipText(c Chip) string {
	return c.Property + ":" + c.Value
}

// chipRows flows chips into rows that fit width w.
func (m HeaderModel) chipRows(w int) [][]Chip {
	const indent = 2
	var rows [][]Chip
	var row []Chip
	rowLen := indent

	for _, c := range m.chips {
		n := runewidth.StringWidth(chipText(c))
		if len(row) > 0 && rowLen+2+n > w {
			rows = append(rows, row)
			row = nil
			rowLen = indent
		}
		if len(row) > 0 {
			rowLen += 2
		}
		row = append(row, c)
		rowLen += n
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func (m HeaderModel) renderChips(w int) []string {
	t := m.theme
	propStyle := t.Renderer.NewStyle().Foreground(t.Subtext)
	valueStyle := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true)

	var lines []string
	for _, row := range m.chipRows(w) {
		parts := make([]string, len(row))
		for i, c := range row {
			parts[i] = propStyle.Render(c.Property+":") + valueStyle.Render(c.Value)
		}
		lines = append(lines, "  "+strings.Join(parts, "  "))
	}
	return lines
}
