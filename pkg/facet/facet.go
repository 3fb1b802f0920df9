// Package facet implements a list-style facet for a faceted search sidebar.
//
// A facet shows per-value counts for one filterable property, lets the user
// select values (single or multi), clear the selection, open/close the facet
// and search the property's values asynchronously with "load more" paging.
//
// The selection is owned by the caller. The facet never mutates it: it emits
// a ChangeMsg with the desired selection and expects the owner to feed the
// new values back through SetValues. Search state (query, accumulated
// results, paging, loading) is local to the facet and driven by Reduce.
package facet

import "fmt"

// Paging describes one page of a larger result set.
type Paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

// Validate checks the paging triple is well formed.
func (p Paging) Validate() error {
	if p.PageIndex < 1 {
		return fmt.Errorf("page index must be >= 1, got %d", p.PageIndex)
	}
	if p.PageSize < 1 {
		return fmt.Errorf("page size must be > 0, got %d", p.PageSize)
	}
	if p.Total < 0 {
		return fmt.Errorf("total must be >= 0, got %d", p.Total)
	}
	return nil
}

// SearchPage is one page of values returned by a Searcher.
type SearchPage[V any] struct {
	Results []V    `json:"results"`
	Paging  Paging `json:"paging"`
}

// FetchState tells whether a search request is in flight.
type FetchState int

const (
	// Idle means no search request is outstanding.
	Idle FetchState = iota
	// Loading means the current search request has not resolved yet.
	Loading
)

func (s FetchState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	}
	return fmt.Sprintf("FetchState(%d)", int(s))
}

// Stats maps a facet value to the number of matching items.
type Stats[V comparable] map[V]int

// Patch is the change notification payload, keyed by facet property.
type Patch[V any] map[string][]V
