// Package preset provides named facet selections that can be applied to the
// browser or the CLI in one go.
package preset

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/saimonmoore/sonarqube/pkg/model"
	"github.com/saimonmoore/sonarqube/pkg/store"
)

// Preset is a named selection across facets
type Preset struct {
	Name         string              `yaml:"name" json:"name"`
	Description  string              `yaml:"description,omitempty" json:"description,omitempty"`
	Filters      map[string][]string `yaml:"filters,omitempty" json:"filters,omitempty"`             // property -> selected values
	CreatedAfter string              `yaml:"created_after,omitempty" json:"created_after,omitempty"` // Relative: "14d", "2w", "1m" or ISO date
}

// Validate checks the preset names known properties and a parseable date
func (p Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	for prop := range p.Filters {
		if !store.KnownProperty(prop) {
			return fmt.Errorf("preset %s: %w: %s", p.Name, store.ErrUnknownProperty, prop)
		}
	}
	if _, err := ParseRelativeTime(p.CreatedAfter, time.Now()); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}

// Filter turns the preset into a store filter, resolving relative dates
// against now.
func (p Preset) Filter(now time.Time) (store.Filter, error) {
	f := store.Filter{Values: make(map[string][]string, len(p.Filters))}
	props := make([]string, 0, len(p.Filters))
	for prop := range p.Filters {
		props = append(props, prop)
	}
	sort.Strings(props)
	for _, prop := range props {
		f.Values[prop] = append([]string{}, p.Filters[prop]...)
	}

	after, err := ParseRelativeTime(p.CreatedAfter, now)
	if err != nil {
		return store.Filter{}, err
	}
	f.CreatedAfter = after
	return f, nil
}

// relativeTimePattern matches relative time expressions like "14d", "2w", "1m", "1y"
var relativeTimePattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// ParseRelativeTime converts a relative time string to an absolute time.
// Supports: Nd (days), Nw (weeks), Nm (months), Ny (years)
// Anything else is parsed as an ISO 8601 date or timestamp. The empty
// string yields the zero time.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if matches := relativeTimePattern.FindStringSubmatch(strings.ToLower(s)); matches != nil {
		n, _ := strconv.Atoi(matches[1])
		switch matches[2] {
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "w":
			return now.AddDate(0, 0, -n*7), nil
		case "m":
			return now.AddDate(0, -n, 0), nil
		case "y":
			return now.AddDate(-n, 0, 0), nil
		}
	}

	if ts, err := model.ParseTimestamp(s); err == nil {
		return ts.Time, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}

	return time.Time{}, &TimeParseError{Input: s}
}

// TimeParseError indicates a time parsing failure
type TimeParseError struct {
	Input string
}

func (e *TimeParseError) Error() string {
	return "invalid time format: " + e.Input + " (expected relative like '14d', '2w', '1m' or ISO date)"
}

var unresolved = []string{string(model.StatusOpen), string(model.StatusConfirmed), string(model.StatusReopened)}

// DefaultPreset shows every issue still needing attention
func DefaultPreset() Preset {
	return Preset{
		Name:        "default",
		Description: "Unresolved issues",
		Filters: map[string][]string{
			store.PropertyStatuses: unresolved,
		},
	}
}

// BlockersPreset narrows to the most severe unresolved issues
func BlockersPreset() Preset {
	return Preset{
		Name:        "blockers",
		Description: "Unresolved blocker and critical issues",
		Filters: map[string][]string{
			store.PropertyStatuses:   unresolved,
			store.PropertySeverities: {string(model.SeverityBlocker), string(model.SeverityCritical)},
		},
	}
}

// SecurityPreset shows vulnerabilities and hotspots
func SecurityPreset() Preset {
	return Preset{
		Name:        "security",
		Description: "Vulnerabilities and security hotspots",
		Filters: map[string][]string{
			store.PropertyTypes: {string(model.TypeVulnerability), string(model.TypeSecurityHotspot)},
		},
	}
}

// RecentPreset shows issues raised in the last two weeks
func RecentPreset() Preset {
	return Preset{
		Name:         "recent",
		Description:  "Issues created in the last 14 days",
		CreatedAfter: "14d",
	}
}

// BuiltinPresets returns all built-in presets
func BuiltinPresets() []Preset {
	return []Preset{
		DefaultPreset(),
		BlockersPreset(),
		SecurityPreset(),
		RecentPreset(),
	}
}
