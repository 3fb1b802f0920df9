package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/sync/errgroup"

	"github.com/saimonmoore/sonarqube/pkg/config"
	"github.com/saimonmoore/sonarqube/pkg/export"
	"github.com/saimonmoore/sonarqube/pkg/facet"
	"github.com/saimonmoore/sonarqube/pkg/model"
	"github.com/saimonmoore/sonarqube/pkg/preset"
	"github.com/saimonmoore/sonarqube/pkg/store"
)

const (
	defaultWidth  = 100
	defaultHeight = 30

	sidebarMinWidth = 28
	sidebarMaxWidth = 48
)

type focusArea int

const (
	focusFacets focusArea = iota
	focusIssues
	focusDetail
)

// issuesLoadedMsg carries a fresh first page of issues plus facet stats.
type issuesLoadedMsg struct {
	gen    uint64
	issues []model.Issue
	paging facet.Paging
	stats  map[string]map[string]int
	err    error
}

// moreIssuesMsg carries the next page of the issue list.
type moreIssuesMsg struct {
	gen    uint64
	issues []model.Issue
	paging facet.Paging
	err    error
}

type clipboardMsg struct {
	key string
	err error
}

// ModelConfig wires the browser to its data sources.
type ModelConfig struct {
	Store    *store.Store
	Settings config.Config
	Presets  *preset.Loader // optional
	Preset   string         // applied at startup when set
	Worker   *BackgroundWorker
	Theme    *Theme
}

// Model is the issue browser: a sidebar of facets, the matching issues and
// a detail pane for the issue under the cursor. It owns the facet
// selections and feeds them back to each facet.
type Model struct {
	store    *store.Store
	settings config.Config
	presets  *preset.Loader
	worker   *BackgroundWorker
	theme    Theme
	keys     KeyMap

	facets       []facet.Model[string]
	facetIdx     int
	selections   map[string][]string
	createdAfter time.Time
	presetName   string
	presetDirty  bool

	issues      []model.Issue
	paging      facet.Paging
	cursor      int
	loadGen     uint64
	loading     bool
	loadingMore bool
	lastErr     error

	header     HeaderModel
	picker     PresetPickerModel
	showPicker bool
	showHelp   bool
	viewport   viewport.Model
	renderer   *glamour.TermRenderer
	detailKey  string

	focus  focusArea
	width  int
	height int
	ready  bool

	initCmds []tea.Cmd
	now      func() time.Time
	copyText func(string) error
}

// NewModel builds the browser. The first load starts in Init.
func NewModel(cfg ModelConfig) (Model, error) {
	if cfg.Store == nil {
		return Model{}, fmt.Errorf("ui: store is required")
	}
	theme := DefaultTheme(nil)
	if cfg.Theme != nil {
		theme = *cfg.Theme
	}

	m := Model{
		store:      cfg.Store,
		settings:   cfg.Settings,
		presets:    cfg.Presets,
		worker:     cfg.Worker,
		theme:      theme,
		keys:       DefaultKeyMap(),
		selections: map[string][]string{},
		header:     NewHeader(theme),
		viewport:   viewport.New(0, 0),
		now:        time.Now,
		copyText:   clipboard.WriteAll,
	}

	styles := theme.FacetStyles()
	for _, fc := range cfg.Settings.Facets {
		if !store.KnownProperty(fc.Property) {
			return Model{}, fmt.Errorf("facet %q: %w", fc.Property, store.ErrUnknownProperty)
		}
		opts := facet.Options[string]{
			Property:          fc.Property,
			Header:            fc.DisplayHeader(),
			SearchPlaceholder: fc.Placeholder,
			Open:              fc.Open,
			MaxInitialItems:   fc.MaxInitialItems,
			SearchTimeout:     cfg.Settings.SearchTimeout,
			GetFacetItemText:  valueText(fc.Property),
			Styles:            &styles,
		}
		if fc.Property == store.PropertySeverities {
			opts.RenderFacetItem = m.severityLabel
		}
		if fc.Searchable {
			opts.Searcher = cfg.Store.Searcher(fc.Property, cfg.Settings.SearchPageSize)
		}
		m.facets = append(m.facets, facet.New(opts))
	}
	if len(m.facets) == 0 {
		m.focus = focusIssues
	} else {
		m.facets[0].Focus()
	}

	if cfg.Preset != "" {
		if err := m.applyPreset(cfg.Preset); err != nil {
			return Model{}, err
		}
	}

	m.loadGen = 1
	m.loading = true
	for i := range m.facets {
		m.initCmds = append(m.initCmds, m.facets[i].SetFetching(true))
	}
	m.layout(defaultWidth, defaultHeight)
	m.syncHeader()
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{}, m.initCmds...)
	for _, f := range m.facets {
		cmds = append(cmds, f.Init())
	}
	cmds = append(cmds, m.loadCmd(m.loadGen, m.filter()))
	return tea.Batch(cmds...)
}

// Selections returns a copy of the current facet selections.
func (m Model) Selections() map[string][]string {
	out := make(map[string][]string, len(m.selections))
	for k, v := range m.selections {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Issues returns the issues currently listed.
func (m Model) Issues() []model.Issue { return append([]model.Issue(nil), m.issues...) }

// Facet returns the facet for property.
func (m Model) Facet(property string) (facet.Model[string], bool) {
	if i := m.facetIndex(property); i >= 0 {
		return m.facets[i], true
	}
	return facet.Model[string]{}, false
}

// SelectedIssue returns the issue under the cursor.
func (m Model) SelectedIssue() (model.Issue, bool) {
	if m.cursor < 0 || m.cursor >= len(m.issues) {
		return model.Issue{}, false
	}
	return m.issues[m.cursor], true
}

func (m Model) facetIndex(property string) int {
	for i := range m.facets {
		if m.facets[i].Property() == property {
			return i
		}
	}
	return -1
}

func (m Model) facetProperties() []string {
	props := make([]string, len(m.facets))
	for i := range m.facets {
		props[i] = m.facets[i].Property()
	}
	return props
}

func (m Model) filter() store.Filter {
	return store.Filter{Values: m.Selections(), CreatedAfter: m.createdAfter}
}

// applyPreset replaces the selections with the named preset. The caller
// reloads.
func (m *Model) applyPreset(name string) error {
	if m.presets == nil {
		return fmt.Errorf("no presets loaded")
	}
	p, ok := m.presets.Get(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	f, err := p.Filter(m.now())
	if err != nil {
		return err
	}

	m.selections = map[string][]string{}
	for prop, values := range f.Values {
		if len(values) > 0 {
			m.selections[prop] = values
		}
	}
	m.createdAfter = f.CreatedAfter
	for i := range m.facets {
		m.facets[i].SetValues(m.selections[m.facets[i].Property()])
	}
	m.presetName = name
	m.presetDirty = false
	m.syncHeader()
	return nil
}

// reload starts a new load generation. Responses from older generations
// are dropped.
func (m *Model) reload() tea.Cmd {
	m.loadGen++
	m.loading = true
	m.loadingMore = false

	cmds := make([]tea.Cmd, 0, len(m.facets)+1)
	for i := range m.facets {
		cmds = append(cmds, m.facets[i].SetFetching(true))
	}
	cmds = append(cmds, m.loadCmd(m.loadGen, m.filter()))
	return tea.Batch(cmds...)
}

func queryContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func (m Model) loadCmd(gen uint64, f store.Filter) tea.Cmd {
	st := m.store
	props := m.facetProperties()
	pageSize := m.settings.IssuePageSize
	timeout := m.settings.SearchTimeout

	return func() tea.Msg {
		ctx, cancel := queryContext(timeout)
		defer cancel()
		msg := issuesLoadedMsg{gen: gen}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			msg.issues, msg.paging, err = st.SearchIssues(gctx, f, 1, pageSize)
			return err
		})
		g.Go(func() error {
			var err error
			msg.stats, err = st.AllFacetStats(gctx, props, f)
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (m Model) hasMoreIssues() bool {
	return m.paging.PageIndex*m.paging.PageSize < m.paging.Total
}

func (m *Model) loadMoreIssues() tea.Cmd {
	if m.loading || m.loadingMore || !m.hasMoreIssues() {
		return nil
	}
	m.loadingMore = true

	st := m.store
	gen := m.loadGen
	f := m.filter()
	page := m.paging.PageIndex + 1
	pageSize := m.settings.IssuePageSize
	timeout := m.settings.SearchTimeout

	return func() tea.Msg {
		ctx, cancel := queryContext(timeout)
		defer cancel()
		issues, paging, err := st.SearchIssues(ctx, f, page, pageSize)
		return moreIssuesMsg{gen: gen, issues: issues, paging: paging, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.layout(msg.Width, msg.Height)
		m.refreshDetail(true)
		return m, nil

	case issuesLoadedMsg:
		if msg.gen != m.loadGen {
			return m, nil
		}
		m.loading = false
		for i := range m.facets {
			m.facets[i].SetFetching(false)
		}
		if msg.err != nil {
			log.Printf("ui: loading issues failed: %v", msg.err)
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.issues = msg.issues
		m.paging = msg.paging
		if m.cursor >= len(m.issues) {
			m.cursor = max(0, len(m.issues)-1)
		}
		for i := range m.facets {
			m.facets[i].SetStats(facet.Stats[string](msg.stats[m.facets[i].Property()]))
		}
		m.syncHeader()
		m.refreshDetail(false)
		return m, nil

	case moreIssuesMsg:
		if msg.gen != m.loadGen {
			return m, nil
		}
		m.loadingMore = false
		if msg.err != nil {
			log.Printf("ui: loading more issues failed: %v", msg.err)
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.issues = append(m.issues, msg.issues...)
		m.paging = msg.paging
		return m, nil

	case facet.ChangeMsg[string]:
		for prop, values := range msg.Patch {
			m.setSelection(prop, values)
		}
		if m.presetName != "" {
			m.presetDirty = true
		}
		m.syncHeader()
		return m, m.reload()

	case facet.ToggleMsg:
		if i := m.facetIndex(msg.Property); i >= 0 {
			m.facets[i].SetOpen(!m.facets[i].IsOpen())
		}
		return m, nil

	case ApplyPresetMsg:
		m.showPicker = false
		if err := m.applyPreset(msg.Name); err != nil {
			m.header.SetStatus(err.Error())
			return m, nil
		}
		m.header.SetStatus("preset " + msg.Name)
		return m, m.reload()

	case IssuesImportedMsg:
		m.header.SetStatus(fmt.Sprintf("imported %d issues", msg.Count))
		return m, m.reload()

	case ImportErrorMsg:
		m.header.SetStatus("import failed: " + msg.Err.Cause.Error())
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.header.SetStatus("copy failed: " + msg.err.Error())
		} else {
			m.header.SetStatus("copied " + msg.key)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Search responses and spinner ticks are routed by the facets
	// themselves.
	cmds := make([]tea.Cmd, 0, len(m.facets))
	for i := range m.facets {
		var cmd tea.Cmd
		m.facets[i], cmd = m.facets[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focus == focusDetail {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// setSelection records values for property and feeds them back to the
// facet. The selection map is replaced, never mutated.
func (m *Model) setSelection(property string, values []string) {
	next := make(map[string][]string, len(m.selections)+1)
	for k, v := range m.selections {
		next[k] = v
	}
	if len(values) == 0 {
		delete(next, property)
	} else {
		next[property] = append([]string(nil), values...)
	}
	m.selections = next

	if i := m.facetIndex(property); i >= 0 {
		m.facets[i].SetValues(values)
	}
}

func (m Model) searchingFacet() bool {
	return m.focus == focusFacets && m.facetIdx < len(m.facets) && m.facets[m.facetIdx].Searching()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showPicker {
		return m.updatePicker(msg)
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Back) {
			m.showHelp = false
		}
		return m, nil
	}
	if m.searchingFacet() {
		return m.updateFocusedFacet(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.NextFocus):
		m.cycleFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevFocus):
		m.cycleFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.Presets):
		if m.presets == nil {
			return m, nil
		}
		m.picker = NewPresetPickerModel(m.presets.ListSummaries(), m.presetName, m.theme)
		m.picker.SetSize(m.width, m.height)
		m.showPicker = true
		return m, nil
	case key.Matches(msg, m.keys.Reimport):
		if m.worker == nil {
			return m, nil
		}
		m.worker.ResetHash()
		m.worker.TriggerRefresh()
		m.header.SetStatus("reimporting...")
		return m, nil
	}

	switch m.focus {
	case focusIssues:
		return m.updateIssues(msg)
	case focusDetail:
		return m.updateDetail(msg)
	default:
		return m.updateFocusedFacet(msg)
	}
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.picker.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.picker.MoveDown()
	case key.Matches(msg, m.keys.Back):
		m.showPicker = false
	case key.Matches(msg, m.keys.Open):
		name := m.picker.SelectedPreset()
		m.showPicker = false
		if name == "" {
			return m, nil
		}
		return m, func() tea.Msg { return ApplyPresetMsg{Name: name} }
	}
	return m, nil
}

func (m Model) updateFocusedFacet(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.facetIdx >= len(m.facets) {
		return m, nil
	}
	var cmd tea.Cmd
	m.facets[m.facetIdx], cmd = m.facets[m.facetIdx].Update(msg)
	return m, cmd
}

func (m Model) updateIssues(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refreshDetail(false)
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.issues)-1 {
			m.cursor++
			m.refreshDetail(false)
		}
	case key.Matches(msg, m.keys.Open):
		if len(m.issues) > 0 {
			m.focus = focusDetail
		}
	case key.Matches(msg, m.keys.LoadMore):
		return m, m.loadMoreIssues()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.focus = focusIssues
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) copyCmd() tea.Cmd {
	issue, ok := m.SelectedIssue()
	if !ok {
		return nil
	}
	write := m.copyText
	return func() tea.Msg {
		return clipboardMsg{key: issue.Key, err: write(issue.Key)}
	}
}

// cycleFocus moves focus through every facet, then the issue list, then
// the detail pane.
func (m *Model) cycleFocus(delta int) {
	stops := len(m.facets) + 2
	pos := len(m.facets)
	switch m.focus {
	case focusFacets:
		pos = m.facetIdx
	case focusDetail:
		pos = len(m.facets) + 1
	}
	pos = ((pos+delta)%stops + stops) % stops

	for i := range m.facets {
		m.facets[i].Blur()
	}
	switch {
	case pos < len(m.facets):
		m.focus = focusFacets
		m.facetIdx = pos
		m.facets[pos].Focus()
	case pos == len(m.facets):
		m.focus = focusIssues
	default:
		m.focus = focusDetail
	}
}

func (m *Model) syncHeader() {
	m.header.SetSelections(m.selections)
	name := m.presetName
	if name != "" && m.presetDirty {
		name += "*"
	}
	m.header.SetTitle(name, m.paging.Total)
}

func (m Model) sidebarWidth() int {
	w := m.width / 3
	if w < sidebarMinWidth {
		w = sidebarMinWidth
	}
	if w > sidebarMaxWidth {
		w = sidebarMaxWidth
	}
	return w
}

// layout sizes every pane for a width x height terminal.
func (m *Model) layout(width, height int) {
	m.width = width
	m.height = height
	m.header.SetSize(width)
	m.picker.SetSize(width, height)

	side := m.sidebarWidth()
	for i := range m.facets {
		m.facets[i].SetSize(side - 2)
	}

	right := max(20, width-side-3)
	_, detailHeight := m.paneHeights()
	m.viewport.Width = right
	m.viewport.Height = detailHeight

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(20, right-4)),
	)
	if err != nil {
		log.Printf("ui: glamour renderer: %v", err)
		r = nil
	}
	m.renderer = r
}

// paneHeights splits the body between the issue list and the detail pane.
func (m Model) paneHeights() (list, detail int) {
	body := m.height - m.header.Height() - 1
	if body < 6 {
		body = 6
	}
	list = body / 2
	detail = body - list - 1
	return list, detail
}

// refreshDetail renders the issue under the cursor into the detail pane.
func (m *Model) refreshDetail(force bool) {
	issue, ok := m.SelectedIssue()
	if !ok {
		m.detailKey = ""
		m.viewport.SetContent(m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext).Italic(true).Render("No issue selected"))
		return
	}
	if issue.Key == m.detailKey && !force {
		return
	}

	md := export.IssueMarkdown(issue)
	content := md
	if m.renderer != nil {
		if out, err := m.renderer.Render(md); err == nil {
			content = out
		}
	}
	m.viewport.SetContent(content)
	if issue.Key != m.detailKey {
		m.viewport.GotoTop()
	}
	m.detailKey = issue.Key
}

// View implements tea.Model.
func (m Model) View() string {
	if m.showPicker {
		return m.picker.View()
	}
	if m.showHelp {
		return RenderContextHelp(m.helpContext(), m.theme, m.width, m.height)
	}

	side := m.sidebarWidth()
	right := max(20, m.width-side-3)
	listHeight, _ := m.paneHeights()
	bodyHeight := listHeight + m.viewport.Height + 1

	sidebar := m.sidebarView(side, bodyHeight)
	sepStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Border)
	sep := sepStyle.Render(strings.TrimSuffix(strings.Repeat(" │\n", bodyHeight), "\n"))

	rule := sepStyle.Render(strings.Repeat("─", right))
	rightPane := lipgloss.JoinVertical(lipgloss.Left,
		m.issueListView(right, listHeight),
		rule,
		m.viewport.View(),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, sep, " ", rightPane)
	return lipgloss.JoinVertical(lipgloss.Left, m.header.View(), body, m.footerView())
}

// sidebarView stacks the facets, scrolled so the focused facet is visible.
func (m Model) sidebarView(width, height int) string {
	var lines []string
	focusStart := 0
	for i := range m.facets {
		if i == m.facetIdx {
			focusStart = len(lines)
		}
		lines = append(lines, strings.Split(m.facets[i].View(), "\n")...)
		lines = append(lines, "")
	}

	offset := 0
	if m.focus == focusFacets && focusStart >= height {
		offset = focusStart
	}
	if offset > len(lines)-height {
		offset = max(0, len(lines)-height)
	}
	end := min(len(lines), offset+height)
	visible := lines[offset:end]
	for len(visible) < height {
		visible = append(visible, "")
	}

	return m.theme.Renderer.NewStyle().Width(width).MaxWidth(width).Render(strings.Join(visible, "\n"))
}

func (m Model) issueListView(width, height int) string {
	t := m.theme
	dim := t.Renderer.NewStyle().Foreground(t.Subtext)

	var lines []string
	rows := height - 1 // status line
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(len(m.issues), start+rows)
	for i := start; i < end; i++ {
		lines = append(lines, m.issueLine(m.issues[i], i == m.cursor, width))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}

	var status string
	switch {
	case m.loading:
		status = "Loading issues..."
	case len(m.issues) == 0:
		status = "No issues match"
	default:
		status = fmt.Sprintf("%d of %d issues", len(m.issues), m.paging.Total)
		if m.loadingMore {
			status += " · loading..."
		} else if m.hasMoreIssues() {
			status += " · m: more"
		}
	}
	lines = append(lines, dim.Italic(true).Render(status))
	return strings.Join(lines, "\n")
}

func (m Model) issueLine(issue model.Issue, atCursor bool, width int) string {
	t := m.theme

	prefix := "  "
	if atCursor {
		prefix = "> "
		if m.focus == focusIssues {
			prefix = t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render("> ")
		}
	}

	sev := m.severityLabel(fmt.Sprintf("%-8s", issue.Severity))
	location := issue.ShortComponent()
	if issue.Line > 0 {
		location = fmt.Sprintf("%s:%d", location, issue.Line)
	}

	avail := width - 2 - 9
	locWidth := min(runewidth.StringWidth(location), avail/3)
	msgWidth := avail - locWidth - 1
	message := runewidth.FillRight(runewidth.Truncate(issue.Message, max(0, msgWidth), "…"), max(0, msgWidth))

	msgStyle := t.Base
	if atCursor {
		msgStyle = t.Renderer.NewStyle().Foreground(t.Primary)
	}
	line := prefix + sev + " " + msgStyle.Render(message)
	if locWidth > 0 {
		line += " " + t.Renderer.NewStyle().Foreground(t.Subtext).Render(runewidth.Truncate(location, locWidth, "…"))
	}
	return line
}

// severityLabel colours a severity value. Padding in v is preserved.
func (m Model) severityLabel(v string) string {
	sev := model.Severity(strings.TrimSpace(v))
	return m.theme.Renderer.NewStyle().Foreground(m.theme.SeverityColor(sev)).Render(v)
}

func (m Model) helpContext() Context {
	switch m.focus {
	case focusIssues:
		return ContextIssues
	case focusDetail:
		return ContextDetail
	}
	if m.searchingFacet() {
		return ContextFacetSearch
	}
	return ContextFacet
}

func (m Model) footerView() string {
	if m.lastErr != nil {
		return m.theme.Renderer.NewStyle().Foreground(m.theme.Error).Render("error: " + m.lastErr.Error())
	}
	switch m.focus {
	case focusIssues:
		return helpLine(m.theme, m.keys.Up, m.keys.Down, m.keys.Open, m.keys.LoadMore, m.keys.Copy, m.keys.NextFocus, m.keys.Help)
	case focusDetail:
		return helpLine(m.theme, m.keys.Back, m.keys.Copy, m.keys.NextFocus, m.keys.Help)
	}
	if m.facetIdx < len(m.facets) {
		return helpLine(m.theme, m.facets[m.facetIdx].Keys().ShortHelp()...)
	}
	return ""
}

// valueText returns how a facet value is displayed for property.
func valueText(property string) func(string) string {
	switch property {
	case store.PropertyTypes, store.PropertyStatuses:
		return formatEnum
	}
	return func(v string) string { return v }
}

// formatEnum converts an enum value to a display name.
// Example: "CODE_SMELL" -> "Code Smell"
func formatEnum(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
