package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/saimonmoore/sonarqube/pkg/facet"
	"github.com/saimonmoore/sonarqube/pkg/model"
)

func day(d int) model.Timestamp {
	return model.Timestamp{Time: time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)}
}

func sampleIssues() []model.Issue {
	return []model.Issue{
		{Key: "I1", Rule: "go:S1144", Severity: model.SeverityMajor, Project: "api", Author: "ann", Type: model.TypeCodeSmell, Status: model.StatusOpen, Tags: []string{"unused"}, CreationDate: day(1)},
		{Key: "I2", Rule: "go:S2068", Severity: model.SeverityBlocker, Project: "api", Author: "bob", Type: model.TypeVulnerability, Status: model.StatusOpen, Tags: []string{"cwe", "owasp"}, CreationDate: day(2)},
		{Key: "I3", Rule: "go:S1144", Severity: model.SeverityMinor, Project: "web", Author: "ann", Type: model.TypeCodeSmell, Status: model.StatusClosed, Tags: []string{"unused"}, CreationDate: day(3)},
		{Key: "I4", Rule: "go:S3776", Severity: model.SeverityCritical, Project: "web", Type: model.TypeCodeSmell, Status: model.StatusConfirmed, CreationDate: day(4)},
		{Key: "I5", Rule: "go:S2068", Severity: model.SeverityBlocker, Project: "web", Author: "cat", Type: model.TypeVulnerability, Status: model.StatusReopened, Tags: []string{"cwe"}, CreationDate: day(5)},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sqf.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.ReplaceIssues(context.Background(), "issues.jsonl", sampleIssues()); err != nil {
		t.Fatalf("ReplaceIssues() error = %v", err)
	}
	return s
}

func TestReplaceIssues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	if err != nil || n != 5 {
		t.Fatalf("Count() = %d, %v", n, err)
	}

	if err := s.ReplaceIssues(ctx, "other.jsonl", sampleIssues()[:2]); err != nil {
		t.Fatalf("ReplaceIssues() error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 2 {
		t.Errorf("Count() after replace = %d, want 2", n)
	}

	info, ok, err := s.LastImport(ctx)
	if err != nil || !ok {
		t.Fatalf("LastImport() = %v, %v", ok, err)
	}
	if info.Source != "other.jsonl" || info.Count != 2 {
		t.Errorf("LastImport() = %+v", info)
	}
}

func TestLastImport_Empty(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	_, ok, err := s.LastImport(context.Background())
	if err != nil || ok {
		t.Errorf("LastImport() on empty db = %v, %v", ok, err)
	}
}

func TestGetIssue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, "I2")
	if err != nil {
		t.Fatalf("GetIssue() error = %v", err)
	}
	if issue.Severity != model.SeverityBlocker || !reflect.DeepEqual(issue.Tags, []string{"cwe", "owasp"}) {
		t.Errorf("GetIssue() = %+v", issue)
	}
	if !issue.CreationDate.Equal(day(2).Time) {
		t.Errorf("creation date = %v", issue.CreationDate)
	}

	if _, err := s.GetIssue(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFacetStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		property string
		filter   Filter
		want     map[string]int
	}{
		{"severities unfiltered", PropertySeverities, Filter{},
			map[string]int{"BLOCKER": 2, "CRITICAL": 1, "MAJOR": 1, "MINOR": 1}},
		{"own selection ignored", PropertySeverities,
			Filter{Values: map[string][]string{PropertySeverities: {"MAJOR"}}},
			map[string]int{"BLOCKER": 2, "CRITICAL": 1, "MAJOR": 1, "MINOR": 1}},
		{"other selection applied", PropertySeverities,
			Filter{Values: map[string][]string{PropertyProjects: {"web"}}},
			map[string]int{"BLOCKER": 1, "CRITICAL": 1, "MINOR": 1}},
		{"tags", PropertyTags, Filter{},
			map[string]int{"cwe": 2, "owasp": 1, "unused": 2}},
		{"filtered by tag", PropertyRules,
			Filter{Values: map[string][]string{PropertyTags: {"cwe"}}},
			map[string]int{"go:S2068": 2}},
		{"empty author skipped", PropertyAuthors, Filter{},
			map[string]int{"ann": 2, "bob": 1, "cat": 1}},
		{"created after", PropertyProjects,
			Filter{CreatedAfter: day(3).Time},
			map[string]int{"web": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FacetStats(ctx, tt.property, tt.filter)
			if err != nil {
				t.Fatalf("FacetStats() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FacetStats() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFacetStats_UnknownProperty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.FacetStats(ctx, "colors", Filter{}); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("expected ErrUnknownProperty, got %v", err)
	}
	bad := Filter{Values: map[string][]string{"colors": {"red"}}}
	if _, err := s.FacetStats(ctx, PropertyRules, bad); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("expected ErrUnknownProperty for filter, got %v", err)
	}
}

func TestAllFacetStats(t *testing.T) {
	s := openTestStore(t)
	filter := Filter{Values: map[string][]string{PropertyTypes: {"VULNERABILITY"}}}

	all, err := s.AllFacetStats(context.Background(), Properties(), filter)
	if err != nil {
		t.Fatalf("AllFacetStats() error = %v", err)
	}
	if len(all) != len(Properties()) {
		t.Fatalf("got %d properties, want %d", len(all), len(Properties()))
	}
	if got := all[PropertyProjects]; !reflect.DeepEqual(got, map[string]int{"api": 1, "web": 1}) {
		t.Errorf("projects = %v", got)
	}
	if got := all[PropertyTypes]; got["CODE_SMELL"] != 3 {
		t.Errorf("types should ignore own selection, got %v", got)
	}

	if _, err := s.AllFacetStats(context.Background(), []string{PropertyRules, "bogus"}, Filter{}); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestSearchFacetValues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	page, err := s.SearchFacetValues(ctx, PropertyRules, "S", 0, 2)
	if err != nil {
		t.Fatalf("SearchFacetValues() error = %v", err)
	}
	want := facet.SearchPage[string]{
		Results: []string{"go:S1144", "go:S2068"},
		Paging:  facet.Paging{PageIndex: 1, PageSize: 2, Total: 3},
	}
	if !reflect.DeepEqual(page, want) {
		t.Errorf("page 1 = %+v, want %+v", page, want)
	}

	page, err = s.SearchFacetValues(ctx, PropertyRules, "s", 2, 2)
	if err != nil {
		t.Fatalf("SearchFacetValues() error = %v", err)
	}
	if !reflect.DeepEqual(page.Results, []string{"go:S3776"}) || page.Paging.PageIndex != 2 {
		t.Errorf("page 2 = %+v", page)
	}

	page, _ = s.SearchFacetValues(ctx, PropertyTags, "WAS", 1, 10)
	if !reflect.DeepEqual(page.Results, []string{"owasp"}) {
		t.Errorf("tags search = %+v", page)
	}

	page, _ = s.SearchFacetValues(ctx, PropertyRules, "blabla", 1, 10)
	if len(page.Results) != 0 || page.Results == nil || page.Paging.Total != 0 {
		t.Errorf("no-match search = %#v", page)
	}
}

func TestSearchFacetValues_EscapesWildcards(t *testing.T) {
	s := openTestStore(t)
	page, err := s.SearchFacetValues(context.Background(), PropertyRules, "%", 1, 10)
	if err != nil {
		t.Fatalf("SearchFacetValues() error = %v", err)
	}
	if page.Paging.Total != 0 {
		t.Errorf("%% should match literally, got %v", page.Results)
	}
}

func TestSearcher(t *testing.T) {
	s := openTestStore(t)
	searcher := s.Searcher(PropertyProjects, 1)

	first, err := searcher.Search(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, _ := searcher.Search(context.Background(), "", 2)
	if first.Results[0] != "api" || second.Results[0] != "web" || first.Paging.Total != 2 {
		t.Errorf("pages = %+v / %+v", first, second)
	}
}

func TestSearchIssues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	issues, paging, err := s.SearchIssues(ctx, Filter{}, 1, 3)
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	keys := make([]string, len(issues))
	for i, issue := range issues {
		keys[i] = issue.Key
	}
	// Blockers first, newest first among equals.
	if !reflect.DeepEqual(keys, []string{"I5", "I2", "I4"}) {
		t.Errorf("order = %v", keys)
	}
	if paging != (facet.Paging{PageIndex: 1, PageSize: 3, Total: 5}) {
		t.Errorf("paging = %+v", paging)
	}
	if !reflect.DeepEqual(issues[1].Tags, []string{"cwe", "owasp"}) {
		t.Errorf("tags not attached: %v", issues[1].Tags)
	}

	filter := Filter{Values: map[string][]string{
		PropertyRules:    {"go:S1144"},
		PropertyStatuses: {"OPEN", "CONFIRMED"},
	}}
	issues, paging, err = s.SearchIssues(ctx, filter, 1, 10)
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Key != "I1" || paging.Total != 1 {
		t.Errorf("filtered = %+v, %+v", issues, paging)
	}
}

func TestSearchIssues_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.ReplaceIssues(ctx, "mem", sampleIssues()); err != nil {
		t.Fatalf("ReplaceIssues() error = %v", err)
	}

	issues, _, err := s.SearchIssues(ctx, Filter{Values: map[string][]string{PropertyTags: {"unused"}}}, 1, 10)
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Errorf("got %d issues, want 2", len(issues))
	}
	if _, err := s.AllFacetStats(ctx, Properties(), Filter{}); err != nil {
		t.Errorf("AllFacetStats() on single connection: %v", err)
	}
}

func TestFilterWith(t *testing.T) {
	base := Filter{Values: map[string][]string{PropertyRules: {"a"}}}
	next := base.With(PropertyTags, []string{"x"})
	if _, ok := base.Values[PropertyTags]; ok {
		t.Error("With mutated the receiver")
	}
	if !reflect.DeepEqual(next.Values[PropertyTags], []string{"x"}) || next.Values[PropertyRules][0] != "a" {
		t.Errorf("With() = %+v", next)
	}
}
