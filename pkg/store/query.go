package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saimonmoore/sonarqube/pkg/facet"
	"github.com/saimonmoore/sonarqube/pkg/model"
)

// Facet properties understood by the store.
const (
	PropertySeverities = "severities"
	PropertyTypes      = "types"
	PropertyStatuses   = "statuses"
	PropertyRules      = "rules"
	PropertyProjects   = "projects"
	PropertyAuthors    = "authors"
	PropertyTags       = "tags"
)

// columns maps a property to its column on the issues table. Tags live in
// their own table and are handled separately.
var columns = map[string]string{
	PropertySeverities: "severity",
	PropertyTypes:      "type",
	PropertyStatuses:   "status",
	PropertyRules:      "rule",
	PropertyProjects:   "project",
	PropertyAuthors:    "author",
}

// ErrUnknownProperty is returned for a property the store cannot facet on.
var ErrUnknownProperty = errors.New("unknown facet property")

// Properties returns every facet property the store supports, sorted.
func Properties() []string {
	props := make([]string, 0, len(columns)+1)
	for p := range columns {
		props = append(props, p)
	}
	props = append(props, PropertyTags)
	sort.Strings(props)
	return props
}

// KnownProperty reports whether the store can facet on property.
func KnownProperty(property string) bool {
	_, ok := columns[property]
	return ok || property == PropertyTags
}

// Filter restricts issues by facet selections. A property with an empty
// value list is unconstrained.
type Filter struct {
	Values       map[string][]string `json:"values,omitempty"`
	CreatedAfter time.Time           `json:"created_after,omitzero"`
}

// With returns a copy of f with property set to values.
func (f Filter) With(property string, values []string) Filter {
	next := Filter{Values: make(map[string][]string, len(f.Values)+1), CreatedAfter: f.CreatedAfter}
	for k, v := range f.Values {
		next.Values[k] = v
	}
	next.Values[property] = append([]string{}, values...)
	return next
}

// where builds the WHERE clause for f, leaving out the exclude property.
func (f Filter) where(exclude string) (string, []any, error) {
	props := make([]string, 0, len(f.Values))
	for p := range f.Values {
		props = append(props, p)
	}
	sort.Strings(props)

	clauses := []string{"1 = 1"}
	var args []any
	for _, p := range props {
		values := f.Values[p]
		if p == exclude || len(values) == 0 {
			continue
		}
		for _, v := range values {
			args = append(args, v)
		}
		switch col, ok := columns[p]; {
		case ok:
			clauses = append(clauses, fmt.Sprintf("issues.%s IN (%s)", col, placeholders(len(values))))
		case p == PropertyTags:
			clauses = append(clauses, fmt.Sprintf(
				"issues.key IN (SELECT issue_key FROM issue_tags WHERE tag IN (%s))", placeholders(len(values))))
		default:
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownProperty, p)
		}
	}
	if !f.CreatedAfter.IsZero() {
		clauses = append(clauses, "issues.created_at >= ?")
		args = append(args, f.CreatedAfter.Unix())
	}
	return strings.Join(clauses, " AND "), args, nil
}

// FacetStats counts issues per value of property. The property's own
// selection is ignored so the user can see what else is available.
func (s *Store) FacetStats(ctx context.Context, property string, filter Filter) (map[string]int, error) {
	where, args, err := filter.where(property)
	if err != nil {
		return nil, err
	}

	var query string
	if col, ok := columns[property]; ok {
		query = fmt.Sprintf(`SELECT issues.%[1]s, COUNT(*) FROM issues
			WHERE %[2]s AND issues.%[1]s != '' GROUP BY issues.%[1]s`, col, where)
	} else if property == PropertyTags {
		query = fmt.Sprintf(`SELECT t.tag, COUNT(*) FROM issue_tags t
			JOIN issues ON issues.key = t.issue_key
			WHERE %s GROUP BY t.tag`, where)
	} else {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, property)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("facet stats %s: %w", property, err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var value string
		var n int
		if err := rows.Scan(&value, &n); err != nil {
			return nil, fmt.Errorf("scan facet stats %s: %w", property, err)
		}
		stats[value] = n
	}
	return stats, rows.Err()
}

// AllFacetStats runs FacetStats for every property concurrently.
func (s *Store) AllFacetStats(ctx context.Context, properties []string, filter Filter) (map[string]map[string]int, error) {
	results := make([]map[string]int, len(properties))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range properties {
		g.Go(func() error {
			stats, err := s.FacetStats(gctx, p, filter)
			if err != nil {
				return err
			}
			results[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]map[string]int, len(properties))
	for i, p := range properties {
		out[p] = results[i]
	}
	return out, nil
}

// SearchFacetValues lists the distinct values of property containing query,
// case-insensitively, in alphabetical order. Page 0 is treated as page 1.
func (s *Store) SearchFacetValues(ctx context.Context, property, query string, page, pageSize int) (facet.SearchPage[string], error) {
	if pageSize <= 0 {
		return facet.SearchPage[string]{}, fmt.Errorf("page size must be > 0, got %d", pageSize)
	}
	if page <= 0 {
		page = 1
	}

	var source string
	if col, ok := columns[property]; ok {
		source = fmt.Sprintf(`SELECT DISTINCT %[1]s AS value FROM issues WHERE %[1]s != ''`, col)
	} else if property == PropertyTags {
		source = `SELECT DISTINCT tag AS value FROM issue_tags`
	} else {
		return facet.SearchPage[string]{}, fmt.Errorf("%w: %s", ErrUnknownProperty, property)
	}

	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	match := `FROM (` + source + `) WHERE LOWER(value) LIKE ? ESCAPE '\'`

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+match, pattern).Scan(&total); err != nil {
		return facet.SearchPage[string]{}, fmt.Errorf("count %s values: %w", property, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT value `+match+` ORDER BY value LIMIT ? OFFSET ?`,
		pattern, pageSize, (page-1)*pageSize)
	if err != nil {
		return facet.SearchPage[string]{}, fmt.Errorf("search %s values: %w", property, err)
	}
	defer rows.Close()

	results := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return facet.SearchPage[string]{}, fmt.Errorf("scan %s value: %w", property, err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return facet.SearchPage[string]{}, err
	}

	return facet.SearchPage[string]{
		Results: results,
		Paging:  facet.Paging{PageIndex: page, PageSize: pageSize, Total: total},
	}, nil
}

// Searcher adapts SearchFacetValues for one property to a facet searcher.
func (s *Store) Searcher(property string, pageSize int) facet.Searcher[string] {
	return facet.SearchFunc[string](func(ctx context.Context, query string, page int) (facet.SearchPage[string], error) {
		return s.SearchFacetValues(ctx, property, query, page, pageSize)
	})
}

// SearchIssues returns one page of issues matching filter, most severe and
// then newest first.
func (s *Store) SearchIssues(ctx context.Context, filter Filter, page, pageSize int) ([]model.Issue, facet.Paging, error) {
	if pageSize <= 0 {
		return nil, facet.Paging{}, fmt.Errorf("page size must be > 0, got %d", pageSize)
	}
	if page <= 0 {
		page = 1
	}

	where, args, err := filter.where("")
	if err != nil {
		return nil, facet.Paging{}, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE `+where, args...).Scan(&total); err != nil {
		return nil, facet.Paging{}, fmt.Errorf("count issues: %w", err)
	}

	pageArgs := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	rows, err := s.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE `+where+`
		ORDER BY issues.severity_rank, issues.created_at DESC, issues.key
		LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, facet.Paging{}, fmt.Errorf("search issues: %w", err)
	}
	defer rows.Close()

	issues := []model.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, facet.Paging{}, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, facet.Paging{}, err
	}
	rows.Close()

	if err := s.attachTags(ctx, issues); err != nil {
		return nil, facet.Paging{}, err
	}
	return issues, facet.Paging{PageIndex: page, PageSize: pageSize, Total: total}, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
