package facet

import "context"

// Searcher looks up facet values matching a query. Page 0 asks for the
// first page without naming a page number; later pages are 2, 3, ...
type Searcher[V any] interface {
	Search(ctx context.Context, query string, page int) (SearchPage[V], error)
}

// SearchFunc adapts an ordinary function to the Searcher interface.
type SearchFunc[V any] func(ctx context.Context, query string, page int) (SearchPage[V], error)

// Search calls f(ctx, query, page).
func (f SearchFunc[V]) Search(ctx context.Context, query string, page int) (SearchPage[V], error) {
	return f(ctx, query, page)
}
