package facet

// State is the facet's local state.
//
// Values is the selection last supplied by the owner; Reduce reads it but
// never writes it. Request is the generation of the most recently issued
// search; a response is only committed while its generation is current.
type State[V comparable] struct {
	Property string
	Values   []V

	Query   string
	Results []V
	Paging  *Paging
	Fetch   FetchState
	// ResultsQuery is the query Results and Paging belong to. It lags Query
	// while a fresh search is in flight or after one failed.
	ResultsQuery string

	Request uint64
	// appending is true when the in-flight request is a "load more".
	appending bool
}

// Loading reports whether a search request is outstanding.
func (s State[V]) Loading() bool {
	return s.Fetch == Loading
}

// HasMore reports whether more search results can be loaded for the query.
func (s State[V]) HasMore() bool {
	return s.Query != "" &&
		s.ResultsQuery == s.Query &&
		s.Paging != nil &&
		len(s.Results) < s.Paging.Total
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// ItemClicked is a click on a facet value or search result.
type ItemClicked[V comparable] struct {
	Value V
	Multi bool
}

// Cleared is a click on the facet's clear control.
type Cleared struct{}

// HeaderClicked is a click on the facet header (open/close).
type HeaderClicked struct{}

// QueryChanged is new text in the facet's search box.
type QueryChanged struct {
	Query string
}

// LoadMoreRequested asks for the next page of search results.
type LoadMoreRequested struct{}

// SearchResolved delivers the result of a search request.
type SearchResolved[V comparable] struct {
	Request uint64
	Query   string
	Page    SearchPage[V]
}

// SearchFailed delivers the error of a search request.
type SearchFailed struct {
	Request uint64
	Query   string
	Err     error
}

func (ItemClicked[V]) isEvent()    {}
func (Cleared) isEvent()           {}
func (HeaderClicked) isEvent()     {}
func (QueryChanged) isEvent()      {}
func (LoadMoreRequested) isEvent() {}
func (SearchResolved[V]) isEvent() {}
func (SearchFailed) isEvent()      {}

// Effect is a side effect requested by Reduce. The caller performs it.
type Effect interface {
	isEffect()
}

// NotifyChange asks the owner to adopt a new selection.
type NotifyChange[V comparable] struct {
	Patch Patch[V]
}

// NotifyToggle asks the owner to flip the facet's open state.
type NotifyToggle struct {
	Property string
}

// RunSearch asks the caller to run a search. Page 0 means the first page,
// requested without an explicit page number.
type RunSearch struct {
	Request uint64
	Query   string
	Page    int
}

func (NotifyChange[V]) isEffect() {}
func (NotifyToggle) isEffect()    {}
func (RunSearch) isEffect()       {}

// Reduce applies ev to s and returns the new state with the effects to run.
// It performs no I/O.
func Reduce[V comparable](s State[V], ev Event) (State[V], []Effect) {
	switch ev := ev.(type) {
	case ItemClicked[V]:
		next := ToggleValue(s.Values, ev.Value, ev.Multi)
		return s, []Effect{s.change(next)}

	case Cleared:
		return s, []Effect{s.change([]V{})}

	case HeaderClicked:
		return s, []Effect{NotifyToggle{Property: s.Property}}

	case QueryChanged:
		return s.search(ev.Query)

	case LoadMoreRequested:
		return s.loadMore()

	case SearchResolved[V]:
		if !s.current(ev.Request, ev.Query) {
			return s, nil
		}
		// A malformed page is treated as a failed request.
		if err := ev.Page.Paging.Validate(); err != nil {
			s.Fetch = Idle
			s.appending = false
			return s, nil
		}
		if s.appending {
			results := make([]V, 0, len(s.Results)+len(ev.Page.Results))
			results = append(results, s.Results...)
			s.Results = append(results, ev.Page.Results...)
		} else {
			s.Results = append([]V{}, ev.Page.Results...)
		}
		paging := ev.Page.Paging
		s.Paging = &paging
		s.ResultsQuery = ev.Query
		s.Fetch = Idle
		s.appending = false
		return s, nil

	case SearchFailed:
		if !s.current(ev.Request, ev.Query) {
			return s, nil
		}
		s.Fetch = Idle
		s.appending = false
		return s, nil
	}
	return s, nil
}

func (s State[V]) change(values []V) NotifyChange[V] {
	return NotifyChange[V]{Patch: Patch[V]{s.Property: values}}
}

func (s State[V]) search(query string) (State[V], []Effect) {
	s.Query = query
	// Any outstanding response belongs to an older query from here on.
	s.Request++
	s.appending = false

	if query == "" {
		s.Results = nil
		s.Paging = nil
		s.ResultsQuery = ""
		s.Fetch = Idle
		return s, nil
	}

	s.Fetch = Loading
	return s, []Effect{RunSearch{Request: s.Request, Query: query}}
}

func (s State[V]) loadMore() (State[V], []Effect) {
	if s.Loading() || !s.HasMore() {
		return s, nil
	}
	s.Request++
	s.Fetch = Loading
	s.appending = true
	return s, []Effect{RunSearch{
		Request: s.Request,
		Query:   s.Query,
		Page:    s.Paging.PageIndex + 1,
	}}
}

func (s State[V]) current(request uint64, query string) bool {
	return request == s.Request && query == s.Query
}
