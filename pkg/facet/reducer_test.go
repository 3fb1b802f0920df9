package facet

import (
	"errors"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func runSearchEffect(t *testing.T, effects []Effect) RunSearch {
	t.Helper()
	if len(effects) != 1 {
		t.Fatalf("expected 1 effect, got %d: %#v", len(effects), effects)
	}
	run, ok := effects[0].(RunSearch)
	if !ok {
		t.Fatalf("expected RunSearch, got %T", effects[0])
	}
	return run
}

func changeEffect(t *testing.T, effects []Effect) Patch[string] {
	t.Helper()
	if len(effects) != 1 {
		t.Fatalf("expected 1 effect, got %d: %#v", len(effects), effects)
	}
	change, ok := effects[0].(NotifyChange[string])
	if !ok {
		t.Fatalf("expected NotifyChange, got %T", effects[0])
	}
	return change.Patch
}

func TestReduce_ItemClicked(t *testing.T) {
	s := State[string]{Property: "foo"}

	s, effects := Reduce(s, ItemClicked[string]{Value: "b"})
	if got := changeEffect(t, effects); !reflect.DeepEqual(got, Patch[string]{"foo": {"b"}}) {
		t.Errorf("click b = %v", got)
	}

	s.Values = []string{"b"}
	s, effects = Reduce(s, ItemClicked[string]{Value: "a"})
	if got := changeEffect(t, effects); !reflect.DeepEqual(got, Patch[string]{"foo": {"a"}}) {
		t.Errorf("click a = %v", got)
	}

	s.Values = []string{"a"}
	_, effects = Reduce(s, ItemClicked[string]{Value: "a"})
	if got := changeEffect(t, effects); !reflect.DeepEqual(got, Patch[string]{"foo": {}}) {
		t.Errorf("click a again = %v", got)
	}
}

func TestReduce_ItemClickedMulti(t *testing.T) {
	s := State[string]{Property: "foo", Values: []string{"b"}}

	_, effects := Reduce(s, ItemClicked[string]{Value: "c", Multi: true})
	if got := changeEffect(t, effects); !reflect.DeepEqual(got, Patch[string]{"foo": {"b", "c"}}) {
		t.Errorf("multi click c = %v", got)
	}

	s.Values = []string{"b", "c"}
	_, effects = Reduce(s, ItemClicked[string]{Value: "c", Multi: true})
	if got := changeEffect(t, effects); !reflect.DeepEqual(got, Patch[string]{"foo": {"b"}}) {
		t.Errorf("multi click c again = %v", got)
	}
}

func TestReduce_SelectionIsOwnedByCaller(t *testing.T) {
	s := State[string]{Property: "foo", Values: []string{"a"}}

	next, _ := Reduce(s, ItemClicked[string]{Value: "b", Multi: true})
	if !reflect.DeepEqual(next.Values, []string{"a"}) {
		t.Errorf("Reduce changed Values to %v", next.Values)
	}
	next, _ = Reduce(s, Cleared{})
	if !reflect.DeepEqual(next.Values, []string{"a"}) {
		t.Errorf("Cleared changed Values to %v", next.Values)
	}
}

func TestReduce_HeaderClicked(t *testing.T) {
	s := State[string]{Property: "foo"}
	_, effects := Reduce(s, HeaderClicked{})
	if len(effects) != 1 {
		t.Fatalf("expected 1 effect, got %d", len(effects))
	}
	if toggle, ok := effects[0].(NotifyToggle); !ok || toggle.Property != "foo" {
		t.Errorf("got %#v, want NotifyToggle{foo}", effects[0])
	}
}

func TestReduce_Cleared(t *testing.T) {
	s := State[string]{Property: "foo", Values: []string{"a"}}
	_, effects := Reduce(s, Cleared{})
	got := changeEffect(t, effects)
	if v, ok := got["foo"]; !ok || v == nil || len(v) != 0 {
		t.Errorf("clear = %#v, want empty non-nil list", got)
	}
}

func TestReduce_SearchAndLoadMore(t *testing.T) {
	s := State[string]{Property: "foo"}

	s, effects := Reduce(s, QueryChanged{Query: "query"})
	run := runSearchEffect(t, effects)
	if run.Query != "query" || run.Page != 0 {
		t.Fatalf("first search = %+v, want query page 0", run)
	}
	if !s.Loading() {
		t.Error("expected loading after search issued")
	}

	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "query",
		Page:    SearchPage[string]{Results: []string{"d", "e"}, Paging: Paging{PageIndex: 1, PageSize: 2, Total: 3}},
	})
	if !reflect.DeepEqual(s.Results, []string{"d", "e"}) {
		t.Fatalf("results = %v, want [d e]", s.Results)
	}
	if s.Loading() || !s.HasMore() {
		t.Fatalf("loading=%v hasMore=%v, want idle with more", s.Loading(), s.HasMore())
	}

	s, effects = Reduce(s, LoadMoreRequested{})
	run = runSearchEffect(t, effects)
	if run.Query != "query" || run.Page != 2 {
		t.Fatalf("load more = %+v, want query page 2", run)
	}

	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "query",
		Page:    SearchPage[string]{Results: []string{"f"}, Paging: Paging{PageIndex: 2, PageSize: 2, Total: 3}},
	})
	if !reflect.DeepEqual(s.Results, []string{"d", "e", "f"}) {
		t.Errorf("results = %v, want [d e f]", s.Results)
	}
	if want := (Paging{PageIndex: 2, PageSize: 2, Total: 3}); s.Paging == nil || *s.Paging != want {
		t.Errorf("paging = %v, want %v", s.Paging, want)
	}
	if s.HasMore() {
		t.Error("expected no more results")
	}

	_, effects = Reduce(s, LoadMoreRequested{})
	if len(effects) != 0 {
		t.Errorf("load more when exhausted should be a no-op, got %#v", effects)
	}
}

func TestReduce_EmptyQueryClearsSearch(t *testing.T) {
	total := 3
	s := State[string]{
		Property:     "foo",
		Query:        "query",
		ResultsQuery: "query",
		Results:      []string{"d"},
		Paging:       &Paging{PageIndex: 1, PageSize: 1, Total: total},
	}

	s, effects := Reduce(s, QueryChanged{Query: ""})
	if len(effects) != 0 {
		t.Errorf("empty query should not search, got %#v", effects)
	}
	if s.Results != nil || s.Paging != nil || s.Query != "" || s.Loading() {
		t.Errorf("state not reset: %+v", s)
	}
}

func TestReduce_EmptyResults(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "blabla"})
	run := runSearchEffect(t, effects)

	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "blabla",
		Page:    SearchPage[string]{Results: []string{}, Paging: Paging{PageIndex: 1, PageSize: 2, Total: 0}},
	})
	if len(s.Results) != 0 || s.Paging == nil || s.Paging.Total != 0 {
		t.Errorf("state = %+v, want empty results with total 0", s)
	}
	if s.HasMore() {
		t.Error("empty result set should not offer more")
	}
}

func TestReduce_FailureKeepsPreviousResults(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "query"})
	run := runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "query",
		Page:    SearchPage[string]{Results: []string{"d", "e"}, Paging: Paging{PageIndex: 1, PageSize: 2, Total: 3}},
	})

	s, effects = Reduce(s, QueryChanged{Query: "blabla"})
	run = runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchFailed{Request: run.Request, Query: "blabla", Err: errors.New("boom")})

	if s.Loading() {
		t.Error("expected loading cleared after failure")
	}
	if !reflect.DeepEqual(s.Results, []string{"d", "e"}) {
		t.Errorf("results = %v, want previous [d e]", s.Results)
	}
	if s.Paging == nil || s.Paging.Total != 3 {
		t.Errorf("paging = %v, want previous", s.Paging)
	}
	if s.HasMore() {
		t.Error("results of an older query must not offer load more")
	}
}

func TestReduce_FailedLoadMoreKeepsAccumulator(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "q"})
	run := runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "q",
		Page:    SearchPage[string]{Results: []string{"a"}, Paging: Paging{PageIndex: 1, PageSize: 1, Total: 2}},
	})

	s, effects = Reduce(s, LoadMoreRequested{})
	run = runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchFailed{Request: run.Request, Query: "q", Err: errors.New("boom")})

	if !reflect.DeepEqual(s.Results, []string{"a"}) || s.Paging.PageIndex != 1 {
		t.Errorf("state = %+v, want first page intact", s)
	}

	// Retrying asks for the same page again.
	_, effects = Reduce(s, LoadMoreRequested{})
	if run = runSearchEffect(t, effects); run.Page != 2 {
		t.Errorf("retry page = %d, want 2", run.Page)
	}
}

func TestReduce_StaleResponseIgnored(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "a"})
	first := runSearchEffect(t, effects)
	s, effects = Reduce(s, QueryChanged{Query: "ab"})
	second := runSearchEffect(t, effects)

	s, _ = Reduce(s, SearchResolved[string]{
		Request: second.Request,
		Query:   "ab",
		Page:    SearchPage[string]{Results: []string{"abc"}, Paging: Paging{PageIndex: 1, PageSize: 10, Total: 1}},
	})
	s, _ = Reduce(s, SearchResolved[string]{
		Request: first.Request,
		Query:   "a",
		Page:    SearchPage[string]{Results: []string{"a1", "a2"}, Paging: Paging{PageIndex: 1, PageSize: 10, Total: 2}},
	})

	if !reflect.DeepEqual(s.Results, []string{"abc"}) {
		t.Errorf("results = %v, want [abc]", s.Results)
	}
	if s.ResultsQuery != "ab" {
		t.Errorf("results query = %q, want ab", s.ResultsQuery)
	}
}

func TestReduce_StaleFailureKeepsLoading(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "a"})
	first := runSearchEffect(t, effects)
	s, _ = Reduce(s, QueryChanged{Query: "ab"})

	s, _ = Reduce(s, SearchFailed{Request: first.Request, Query: "a", Err: errors.New("late")})
	if !s.Loading() {
		t.Error("stale failure must not end the current request")
	}
}

func TestReduce_SameQueryReissuedInvalidatesOlderResponse(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "a"})
	first := runSearchEffect(t, effects)
	s, _ = Reduce(s, QueryChanged{Query: ""})
	s, effects = Reduce(s, QueryChanged{Query: "a"})
	second := runSearchEffect(t, effects)

	s, _ = Reduce(s, SearchResolved[string]{
		Request: first.Request,
		Query:   "a",
		Page:    SearchPage[string]{Results: []string{"old"}, Paging: Paging{PageIndex: 1, PageSize: 10, Total: 1}},
	})
	if len(s.Results) != 0 || !s.Loading() {
		t.Fatalf("older response committed: %+v", s)
	}

	s, _ = Reduce(s, SearchResolved[string]{
		Request: second.Request,
		Query:   "a",
		Page:    SearchPage[string]{Results: []string{"new"}, Paging: Paging{PageIndex: 1, PageSize: 10, Total: 1}},
	})
	if !reflect.DeepEqual(s.Results, []string{"new"}) {
		t.Errorf("results = %v, want [new]", s.Results)
	}
}

func TestReduce_LoadMoreWhileLoadingIsNoop(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "q"})
	run := runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "q",
		Page:    SearchPage[string]{Results: []string{"a"}, Paging: Paging{PageIndex: 1, PageSize: 1, Total: 3}},
	})

	s, effects = Reduce(s, LoadMoreRequested{})
	runSearchEffect(t, effects)
	_, effects = Reduce(s, LoadMoreRequested{})
	if len(effects) != 0 {
		t.Errorf("second load more while loading = %#v, want none", effects)
	}
}

// TestReduce_CommitsOnlyCurrentResponses drives the reducer with random
// interleavings of queries, load-more requests and out-of-order responses.
func TestReduce_CommitsOnlyCurrentResponses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := State[int]{Property: "p"}
		var pending []RunSearch

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			var effects []Effect
			switch rapid.IntRange(0, 3).Draw(t, "action") {
			case 0:
				q := rapid.SampledFrom([]string{"", "a", "ab", "b"}).Draw(t, "query")
				s, effects = Reduce(s, QueryChanged{Query: q})
			case 1:
				s, effects = Reduce(s, LoadMoreRequested{})
			default:
				if len(pending) == 0 {
					continue
				}
				idx := rapid.IntRange(0, len(pending)-1).Draw(t, "response")
				req := pending[idx]
				pending = append(pending[:idx], pending[idx+1:]...)

				before := s
				isCurrent := req.Request == s.Request && req.Query == s.Query
				if rapid.Bool().Draw(t, "fail") {
					s, _ = Reduce(s, SearchFailed{Request: req.Request, Query: req.Query, Err: errors.New("x")})
					if !reflect.DeepEqual(s.Results, before.Results) {
						t.Fatalf("failure changed results %v -> %v", before.Results, s.Results)
					}
				} else {
					pageIndex := req.Page
					if pageIndex == 0 {
						pageIndex = 1
					}
					page := SearchPage[int]{
						Results: []int{pageIndex},
						Paging:  Paging{PageIndex: pageIndex, PageSize: 1, Total: 3},
					}
					s, _ = Reduce(s, SearchResolved[int]{Request: req.Request, Query: req.Query, Page: page})
					if isCurrent && len(s.Results) != pageIndex {
						t.Fatalf("page %d committed with %d results", pageIndex, len(s.Results))
					}
				}
				if !isCurrent && !reflect.DeepEqual(s, before) {
					t.Fatalf("stale response %+v changed state", req)
				}
				if isCurrent && s.Loading() {
					t.Fatalf("current response left state loading")
				}
			}
			for _, eff := range effects {
				if run, ok := eff.(RunSearch); ok {
					if run.Request != s.Request || run.Query != s.Query {
						t.Fatalf("issued %+v but state is at %d/%q", run, s.Request, s.Query)
					}
					pending = append(pending, run)
				}
			}
			if s.Paging != nil && len(s.Results) > s.Paging.Total {
				t.Fatalf("accumulated %d results beyond total %d", len(s.Results), s.Paging.Total)
			}
			if s.Query == "" && (s.Results != nil || s.Loading()) {
				t.Fatalf("empty query left search state %+v", s)
			}
		}
	})
}

func TestReduce_MalformedPagingIsRejected(t *testing.T) {
	s := State[string]{Property: "foo"}
	s, effects := Reduce(s, QueryChanged{Query: "q"})
	run := runSearchEffect(t, effects)

	// First page echoed back with the implicit page number 0.
	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "q",
		Page:    SearchPage[string]{Results: []string{"a", "b"}, Paging: Paging{PageIndex: 0, PageSize: 2, Total: 4}},
	})
	if s.Loading() {
		t.Error("expected idle after malformed page")
	}
	if len(s.Results) != 0 || s.Paging != nil {
		t.Errorf("malformed page committed: results=%v paging=%v", s.Results, s.Paging)
	}
	if _, effects := Reduce(s, LoadMoreRequested{}); len(effects) != 0 {
		t.Errorf("load more after malformed page = %#v", effects)
	}

	// A malformed follow-up page leaves the accumulator alone.
	s, effects = Reduce(s, QueryChanged{Query: "q2"})
	run = runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "q2",
		Page:    SearchPage[string]{Results: []string{"a", "b"}, Paging: Paging{PageIndex: 1, PageSize: 2, Total: 4}},
	})
	s, effects = Reduce(s, LoadMoreRequested{})
	run = runSearchEffect(t, effects)
	s, _ = Reduce(s, SearchResolved[string]{
		Request: run.Request,
		Query:   "q2",
		Page:    SearchPage[string]{Results: []string{"c"}, Paging: Paging{PageIndex: 2, PageSize: 0, Total: 4}},
	})
	if !reflect.DeepEqual(s.Results, []string{"a", "b"}) || s.Paging.PageIndex != 1 {
		t.Errorf("state = %+v, want first page intact", s)
	}
	if s.Loading() {
		t.Error("expected idle after malformed follow-up page")
	}
}
