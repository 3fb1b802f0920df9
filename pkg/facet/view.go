package facet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type listItem[V comparable] struct {
	value    V
	text     string
	count    int
	hasCount bool
}

// visibleItems returns the rows currently listed in the facet body: the
// accumulated search results while a query is active, otherwise the stats
// sorted by count.
func (m Model[V]) visibleItems() []listItem[V] {
	if !m.open {
		return nil
	}
	if m.state.Query != "" {
		return m.searchItems()
	}

	items := make([]listItem[V], 0, len(m.stats))
	for v, n := range m.stats {
		items = append(items, listItem[V]{value: v, text: m.itemText(v), count: n, hasCount: true})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].text < items[j].text
	})
	if !m.showAll && len(items) > m.maxInitial {
		items = items[:m.maxInitial]
	}
	return items
}

func (m Model[V]) searchItems() []listItem[V] {
	seen := make(map[string]bool, len(m.state.Results))
	items := make([]listItem[V], 0, len(m.state.Results))
	for _, v := range m.state.Results {
		k := m.resultKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		n, ok := m.stats[v]
		items = append(items, listItem[V]{value: v, text: m.resultText(v), count: n, hasCount: ok})
	}
	return items
}

// hiddenStats returns how many stats entries the "show all" toggle hides.
func (m Model[V]) hiddenStats() int {
	if m.showAll || len(m.stats) <= m.maxInitial {
		return 0
	}
	return len(m.stats) - m.maxInitial
}

// View renders the facet.
func (m Model[V]) View() string {
	width := m.width
	if width <= 0 {
		width = 40
	}
	s := m.styles

	var lines []string
	lines = append(lines, m.headerLine())
	if !m.open {
		return strings.Join(lines, "\n")
	}

	if m.searcher != nil {
		if m.searching || m.state.Query != "" {
			lines = append(lines, "  "+m.input.View())
		} else if m.placeholder != "" {
			lines = append(lines, "  "+s.Hint.Render("/ "+m.placeholder))
		}
	}

	items := m.visibleItems()
	for i, it := range items {
		lines = append(lines, m.itemLine(it, i == m.cursor && m.focused, width))
	}

	switch {
	case m.state.Query != "":
		if len(items) == 0 && !m.state.Loading() && m.state.ResultsQuery == m.state.Query {
			lines = append(lines, "  "+s.Muted.Render("No results"))
		}
		if p := m.state.Paging; p != nil && m.state.ResultsQuery == m.state.Query && p.Total > 0 {
			footer := fmt.Sprintf("%d of %d shown", len(m.state.Results), p.Total)
			if m.state.HasMore() {
				footer += " · m: load more"
			}
			lines = append(lines, "  "+s.Hint.Render(footer))
		}
	case len(m.stats) == 0:
		lines = append(lines, "  "+s.Muted.Render("No values"))
	default:
		if hidden := m.hiddenStats(); hidden > 0 {
			lines = append(lines, "  "+s.Hint.Render(fmt.Sprintf("a: show all (%d more)", hidden)))
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model[V]) headerLine() string {
	s := m.styles

	marker := "▸"
	if m.open {
		marker = "▾"
	}
	line := s.Header.Render(marker + " " + m.header)

	switch n := len(m.state.Values); {
	case n == 1:
		line += "  " + s.Summary.Render(m.itemText(m.state.Values[0]))
	case n > 1:
		line += "  " + s.Summary.Render(fmt.Sprintf("%d selected", n))
	}
	if len(m.state.Values) > 0 && m.focused {
		line += "  " + s.Hint.Render("c: clear")
	}
	if m.state.Loading() || m.fetching {
		line += " " + m.spinner.View()
	}
	return line
}

func (m Model[V]) itemLine(it listItem[V], atCursor bool, width int) string {
	s := m.styles
	selected := contains(m.state.Values, it.value)

	prefix := "  "
	if atCursor {
		prefix = s.Cursor.Render("> ")
	}
	check := "  "
	if selected {
		check = s.SelectedItem.Render("✓ ")
	}

	count := ""
	if it.hasCount {
		count = fmt.Sprintf("%d", it.count)
	}

	// prefix, check box and a space before the count.
	avail := width - 4 - runewidth.StringWidth(count) - 1
	if avail < 1 {
		avail = 1
	}

	var label string
	switch {
	case m.state.Query != "" && m.renderMatch != nil:
		label = fitLabel(m.renderMatch(it.value, m.state.Query), avail, selected, s)
	case m.state.Query == "" && m.renderItem != nil:
		label = fitLabel(m.renderItem(it.value), avail, selected, s)
	default:
		text := runewidth.Truncate(it.text, avail, "…")
		style := s.Item
		if selected {
			style = s.SelectedItem
		}
		if m.state.Query != "" {
			label = highlight(text, m.state.Query, style, s)
		} else {
			label = style.Render(text)
		}
		if pad := avail - runewidth.StringWidth(text); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
	}

	line := prefix + check + label
	if count != "" {
		line += " " + s.Count.Render(count)
	}
	return line
}

// fitLabel clips a caller-rendered label to width and pads it so counts
// line up with the plain rows.
func fitLabel(label string, width int, selected bool, s Styles) string {
	if selected {
		label = s.SelectedItem.Render(label)
	}
	if lipgloss.Width(label) > width {
		label = lipgloss.NewStyle().MaxWidth(width).Render(label)
	}
	if pad := width - lipgloss.Width(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	return label
}

// highlight renders text with the first case-insensitive match of query
// emphasised.
func highlight(text, query string, base lipgloss.Style, s Styles) string {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		return base.Render(text)
	}
	needle := strings.ToLower(query)
	idx := strings.Index(lower, needle)
	if idx < 0 || needle == "" {
		return base.Render(text)
	}
	end := idx + len(needle)
	return base.Render(text[:idx]) +
		s.Highlight.Inherit(base).Render(text[idx:end]) +
		base.Render(text[end:])
}
