package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies which pane the help overlay describes.
type Context int

const (
	ContextFacet Context = iota
	ContextFacetSearch
	ContextIssues
	ContextDetail
)

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen (~20 lines) without scrolling.
var ContextHelpContent = map[Context]string{
	ContextFacet:       contextHelpFacet,
	ContextFacetSearch: contextHelpFacetSearch,
	ContextIssues:      contextHelpIssues,
	ContextDetail:      contextHelpDetail,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the context-specific help modal centred in a
// width x height area.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)

	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)
	contentStyle := r.NewStyle().
		Foreground(theme.Subtext)
	footerStyle := r.NewStyle().
		Foreground(theme.Subtext).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modalStyle.Render(b.String()))
}

const contextHelpFacet = `## Facet

**Navigation**
  j/k       Move up/down
  tab       Next facet or pane

**Selection**
  enter     Select only this value
  space/x   Add or remove value
  c         Clear selection
  o         Open/close facet
  a         Show all values

**Search**
  /         Search values
  m         Load more results
  esc       Clear search`

const contextHelpFacetSearch = `## Facet Search

Typing searches the facet's values.
Results replace the counts until
the query is cleared.

**Keys**
  up/down   Move through results
  enter     Keep query, leave box
  esc       Clear query`

const contextHelpIssues = `## Issues

**Navigation**
  j/k       Move up/down
  enter     Focus the detail pane
  m         Load more issues

**Actions**
  y         Copy issue key
  p         Apply a preset
  r         Reimport issues file`

const contextHelpDetail = `## Issue Detail

**Navigation**
  j/k       Scroll
  esc       Back to issues

**Actions**
  y         Copy issue key`

const contextHelpGeneric = `## Quick Reference

**Global Keys**
  ?         Help overlay
  tab       Next pane
  p         Presets
  q         Quit`
