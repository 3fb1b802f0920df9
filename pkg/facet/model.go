package facet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// DefaultMaxInitialItems is how many stats entries are listed before
	// the "show all" toggle kicks in.
	DefaultMaxInitialItems = 15
	// DefaultSearchTimeout bounds a single search request.
	DefaultSearchTimeout = 10 * time.Second
)

// ErrNoSearcher is reported when a search is issued on a facet built
// without a Searcher.
var ErrNoSearcher = errors.New("facet has no searcher")

// ChangeMsg asks the owner to adopt a new selection. The owner is expected
// to update its filter and call SetValues on the facet.
type ChangeMsg[V comparable] struct {
	Patch Patch[V]
}

// ToggleMsg asks the owner to flip the open state of a facet.
type ToggleMsg struct {
	Property string
}

// searchDoneMsg carries a search response back into Update.
type searchDoneMsg[V comparable] struct {
	property string
	request  uint64
	query    string
	page     SearchPage[V]
	err      error
}

// Options configures a facet Model.
type Options[V comparable] struct {
	Property          string
	Header            string
	SearchPlaceholder string

	Values []V
	Stats  Stats[V]
	Open   bool

	// Searcher enables the search box. Nil hides it.
	Searcher Searcher[V]

	GetFacetItemText    func(V) string
	GetSearchResultText func(V) string
	GetSearchResultKey  func(V) string
	// RenderFacetItem and RenderSearchResult override the plain text
	// rendering. Their output is used as-is.
	RenderFacetItem    func(V) string
	RenderSearchResult func(v V, query string) string

	MaxInitialItems int
	SearchTimeout   time.Duration

	Styles *Styles
	Keys   *KeyMap
}

// Model is a Bubble Tea component rendering one list-style facet.
type Model[V comparable] struct {
	state State[V]

	header      string
	placeholder string
	stats       Stats[V]
	open        bool
	fetching    bool

	searcher Searcher[V]
	timeout  time.Duration

	itemText    func(V) string
	resultText  func(V) string
	resultKey   func(V) string
	renderItem  func(V) string
	renderMatch func(V, string) string

	maxInitial int
	showAll    bool

	focused   bool
	searching bool
	cursor    int
	width     int

	input   textinput.Model
	spinner spinner.Model
	styles  Styles
	keys    KeyMap
}

// New creates a facet from opts.
func New[V comparable](opts Options[V]) Model[V] {
	itemText := opts.GetFacetItemText
	if itemText == nil {
		itemText = func(v V) string { return fmt.Sprint(v) }
	}
	resultText := opts.GetSearchResultText
	if resultText == nil {
		resultText = itemText
	}
	resultKey := opts.GetSearchResultKey
	if resultKey == nil {
		resultKey = resultText
	}

	maxInitial := opts.MaxInitialItems
	if maxInitial <= 0 {
		maxInitial = DefaultMaxInitialItems
	}
	timeout := opts.SearchTimeout
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}

	styles := DefaultStyles(nil)
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	header := opts.Header
	if header == "" {
		header = opts.Property
	}

	ti := textinput.New()
	ti.Placeholder = opts.SearchPlaceholder
	ti.Prompt = "/ "
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.Spinner

	return Model[V]{
		state: State[V]{
			Property: opts.Property,
			Values:   append([]V{}, opts.Values...),
		},
		header:      header,
		placeholder: opts.SearchPlaceholder,
		stats:       opts.Stats,
		open:        opts.Open,
		searcher:    opts.Searcher,
		timeout:     timeout,
		itemText:    itemText,
		resultText:  resultText,
		resultKey:   resultKey,
		renderItem:  opts.RenderFacetItem,
		renderMatch: opts.RenderSearchResult,
		maxInitial:  maxInitial,
		input:       ti,
		spinner:     sp,
		styles:      styles,
		keys:        keys,
	}
}

// Init implements tea.Model.
func (m Model[V]) Init() tea.Cmd {
	return nil
}

// Property returns the facet's property identifier.
func (m Model[V]) Property() string { return m.state.Property }

// Header returns the facet's display name.
func (m Model[V]) Header() string { return m.header }

// Values returns the selection last supplied by the owner.
func (m Model[V]) Values() []V { return append([]V{}, m.state.Values...) }

// State returns a snapshot of the facet's local state.
func (m Model[V]) State() State[V] {
	s := m.state
	s.Values = append([]V{}, s.Values...)
	s.Results = append([]V(nil), s.Results...)
	return s
}

// Query returns the current search text.
func (m Model[V]) Query() string { return m.state.Query }

// Results returns the accumulated search results for the current query.
func (m Model[V]) Results() []V { return append([]V(nil), m.state.Results...) }

// Paging returns the paging of the last committed search page, or nil.
func (m Model[V]) Paging() *Paging {
	if m.state.Paging == nil {
		return nil
	}
	p := *m.state.Paging
	return &p
}

// Loading reports whether a search request is outstanding.
func (m Model[V]) Loading() bool { return m.state.Loading() }

// IsOpen reports whether the facet body is shown.
func (m Model[V]) IsOpen() bool { return m.open }

// Searchable reports whether the facet has a search box.
func (m Model[V]) Searchable() bool { return m.searcher != nil }

// Searching reports whether the search box has keyboard focus.
func (m Model[V]) Searching() bool { return m.searching }

// Focused reports whether the facet receives key events.
func (m Model[V]) Focused() bool { return m.focused }

// Keys returns the facet's keybindings.
func (m Model[V]) Keys() KeyMap { return m.keys }

// SetValues replaces the selection. Owners call it after handling ChangeMsg.
func (m *Model[V]) SetValues(values []V) {
	m.state.Values = append([]V{}, values...)
}

// SetStats replaces the per-value counts.
func (m *Model[V]) SetStats(stats Stats[V]) {
	m.stats = stats
	m.clampCursor()
}

// SetOpen sets whether the facet body is shown.
func (m *Model[V]) SetOpen(open bool) {
	m.open = open
	if !open && m.searching {
		m.searching = false
		m.input.Blur()
	}
	m.clampCursor()
}

// SetFetching marks the owner as reloading stats. The returned command
// starts the spinner when fetching begins.
func (m *Model[V]) SetFetching(fetching bool) tea.Cmd {
	started := fetching && !m.fetching && !m.state.Loading()
	m.fetching = fetching
	if started {
		return m.spinner.Tick
	}
	return nil
}

// SetSize sets the width available to the facet.
func (m *Model[V]) SetSize(width int) {
	m.width = width
	m.input.Width = width - 4
}

// Focus routes key events to the facet.
func (m *Model[V]) Focus() {
	m.focused = true
}

// Blur stops routing key events to the facet.
func (m *Model[V]) Blur() {
	m.focused = false
	if m.searching {
		m.searching = false
		m.input.Blur()
	}
}

// HandleItemClick toggles value in the selection. With multi the value is
// added or removed; otherwise it replaces the selection.
func (m *Model[V]) HandleItemClick(value V, multi bool) tea.Cmd {
	return m.dispatch(ItemClicked[V]{Value: value, Multi: multi})
}

// HandleClear empties the selection.
func (m *Model[V]) HandleClear() tea.Cmd {
	return m.dispatch(Cleared{})
}

// HandleHeaderClick asks the owner to open or close the facet.
func (m *Model[V]) HandleHeaderClick() tea.Cmd {
	return m.dispatch(HeaderClicked{})
}

// HandleSearch sets the search query. An empty query ends the search.
func (m *Model[V]) HandleSearch(query string) tea.Cmd {
	if m.input.Value() != query {
		m.input.SetValue(query)
	}
	m.cursor = 0
	return m.dispatch(QueryChanged{Query: query})
}

// HandleLoadMore requests the next page of search results.
func (m *Model[V]) HandleLoadMore() tea.Cmd {
	return m.dispatch(LoadMoreRequested{})
}

// Update implements tea.Model.
func (m Model[V]) Update(msg tea.Msg) (Model[V], tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg[V]:
		if msg.property != m.state.Property {
			return m, nil
		}
		if msg.err == nil {
			if err := msg.page.Paging.Validate(); err != nil {
				msg.err = fmt.Errorf("invalid paging: %w", err)
			}
		}
		if msg.err != nil {
			if msg.request == m.state.Request {
				log.Printf("facet %s: search %q failed: %v", m.state.Property, msg.query, msg.err)
			}
			return m, m.dispatch(SearchFailed{Request: msg.request, Query: msg.query, Err: msg.err})
		}
		return m, m.dispatch(SearchResolved[V]{Request: msg.request, Query: msg.query, Page: msg.page})

	case spinner.TickMsg:
		if !m.state.Loading() && !m.fetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		if m.searching {
			return m.updateSearching(msg)
		}
		return m.updateBrowsing(msg)
	}

	if m.searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model[V]) updateBrowsing(msg tea.KeyMsg) (Model[V], tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		return m, m.HandleHeaderClick()
	case key.Matches(msg, m.keys.Clear):
		if len(m.state.Values) == 0 {
			return m, nil
		}
		return m, m.HandleClear()
	}

	if !m.open {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visibleItems())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if v, ok := m.CursorValue(); ok {
			return m, m.HandleItemClick(v, false)
		}
	case key.Matches(msg, m.keys.Toggle):
		if v, ok := m.CursorValue(); ok {
			return m, m.HandleItemClick(v, true)
		}
	case key.Matches(msg, m.keys.Search):
		if m.searcher == nil {
			return m, nil
		}
		m.searching = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Cancel):
		if m.state.Query != "" {
			return m, m.HandleSearch("")
		}
	case key.Matches(msg, m.keys.LoadMore):
		return m, m.HandleLoadMore()
	case key.Matches(msg, m.keys.ShowAll):
		if m.state.Query == "" {
			m.showAll = !m.showAll
			m.clampCursor()
		}
	}
	return m, nil
}

func (m Model[V]) updateSearching(msg tea.KeyMsg) (Model[V], tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.input.Blur()
		return m, m.HandleSearch("")
	case key.Matches(msg, m.keys.Accept):
		m.searching = false
		m.input.Blur()
		return m, nil
	case msg.Type == tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case msg.Type == tea.KeyDown:
		if m.cursor < len(m.visibleItems())-1 {
			m.cursor++
		}
		return m, nil
	}

	prev := m.input.Value()
	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	if next := m.input.Value(); next != prev {
		return m, tea.Batch(inputCmd, m.HandleSearch(next))
	}
	return m, inputCmd
}

// CursorValue returns the value under the cursor.
func (m Model[V]) CursorValue() (V, bool) {
	items := m.visibleItems()
	if m.cursor < 0 || m.cursor >= len(items) {
		var zero V
		return zero, false
	}
	return items[m.cursor].value, true
}

// dispatch runs ev through Reduce and turns the resulting effects into
// commands.
func (m *Model[V]) dispatch(ev Event) tea.Cmd {
	wasLoading := m.state.Loading()

	var effects []Effect
	m.state, effects = Reduce(m.state, ev)

	cmds := make([]tea.Cmd, 0, len(effects)+1)
	for _, eff := range effects {
		cmds = append(cmds, m.perform(eff))
	}
	if m.state.Loading() && !wasLoading && !m.fetching {
		cmds = append(cmds, m.spinner.Tick)
	}
	m.clampCursor()
	return tea.Batch(cmds...)
}

func (m *Model[V]) perform(eff Effect) tea.Cmd {
	switch eff := eff.(type) {
	case NotifyChange[V]:
		return func() tea.Msg { return ChangeMsg[V]{Patch: eff.Patch} }
	case NotifyToggle:
		return func() tea.Msg { return ToggleMsg{Property: eff.Property} }
	case RunSearch:
		return m.searchCmd(eff)
	}
	return nil
}

func (m *Model[V]) searchCmd(req RunSearch) tea.Cmd {
	property := m.state.Property
	searcher := m.searcher
	timeout := m.timeout

	return func() tea.Msg {
		done := searchDoneMsg[V]{property: property, request: req.Request, query: req.Query}
		if searcher == nil {
			done.err = ErrNoSearcher
			return done
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		done.page, done.err = searcher.Search(ctx, req.Query, req.Page)
		return done
	}
}

func (m *Model[V]) clampCursor() {
	n := len(m.visibleItems())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
