package model

import (
	"fmt"
	"strings"
	"time"
)

// Issue is a single static-analysis finding
type Issue struct {
	Key          string    `json:"key"`
	Rule         string    `json:"rule"`
	Severity     Severity  `json:"severity"`
	Component    string    `json:"component"`
	Project      string    `json:"project"`
	Line         int       `json:"line,omitempty"`
	Message      string    `json:"message"`
	Author       string    `json:"author,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Type         IssueType `json:"type"`
	Status       Status    `json:"status"`
	Resolution   string    `json:"resolution,omitempty"`
	Effort       string    `json:"effort,omitempty"`
	CreationDate Timestamp `json:"creationDate"`
	UpdateDate   Timestamp `json:"updateDate"`
}

// Clone creates a deep copy of the issue
func (i Issue) Clone() Issue {
	clone := i
	if i.Tags != nil {
		clone.Tags = make([]string, len(i.Tags))
		copy(clone.Tags, i.Tags)
	}
	return clone
}

// Validate checks if the issue data is logically valid
func (i *Issue) Validate() error {
	if i.Key == "" {
		return fmt.Errorf("issue key cannot be empty")
	}
	if i.Rule == "" {
		return fmt.Errorf("issue rule cannot be empty")
	}
	if !i.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", i.Severity)
	}
	if !i.Type.IsValid() {
		return fmt.Errorf("invalid issue type: %s", i.Type)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	if i.Line < 0 {
		return fmt.Errorf("line (%d) cannot be negative", i.Line)
	}
	if !i.UpdateDate.IsZero() && !i.CreationDate.IsZero() && i.UpdateDate.Before(i.CreationDate.Time) {
		return fmt.Errorf("updateDate (%v) cannot be before creationDate (%v)", i.UpdateDate, i.CreationDate)
	}
	return nil
}

// ShortComponent returns the component path without the project prefix.
// Example: "my-app:src/main.go" -> "src/main.go"
func (i Issue) ShortComponent() string {
	if idx := strings.Index(i.Component, ":"); idx >= 0 {
		return i.Component[idx+1:]
	}
	return i.Component
}

// Severity ranks how much an issue matters
type Severity string

const (
	SeverityBlocker  Severity = "BLOCKER"
	SeverityCritical Severity = "CRITICAL"
	SeverityMajor    Severity = "MAJOR"
	SeverityMinor    Severity = "MINOR"
	SeverityInfo     Severity = "INFO"
)

// Severities lists all severities from most to least severe.
var Severities = []Severity{SeverityBlocker, SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo}

// IsValid returns true if the severity is a recognized value
func (s Severity) IsValid() bool {
	return s.Rank() >= 0
}

// Rank orders severities, 0 being the most severe. Unknown values return -1.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i
		}
	}
	return -1
}

// IssueType categorizes the finding
type IssueType string

const (
	TypeBug             IssueType = "BUG"
	TypeVulnerability   IssueType = "VULNERABILITY"
	TypeCodeSmell       IssueType = "CODE_SMELL"
	TypeSecurityHotspot IssueType = "SECURITY_HOTSPOT"
)

// IsValid returns true if the issue type is a recognized value
func (t IssueType) IsValid() bool {
	switch t {
	case TypeBug, TypeVulnerability, TypeCodeSmell, TypeSecurityHotspot:
		return true
	}
	return false
}

// Status is the workflow state of an issue
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusConfirmed Status = "CONFIRMED"
	StatusReopened  Status = "REOPENED"
	StatusResolved  Status = "RESOLVED"
	StatusClosed    Status = "CLOSED"
)

// IsValid returns true if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusConfirmed, StatusReopened, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsResolved returns true if the issue no longer needs attention
func (s Status) IsResolved() bool {
	return s == StatusResolved || s == StatusClosed
}

// timestampLayouts are tried in order when decoding a Timestamp. The second
// one is the offset format without a colon, e.g. 2013-05-13T17:55:39+0200.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// Timestamp is a time.Time that also accepts offsets without a colon.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s with any of the supported layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON encodes the timestamp as RFC 3339, or null when zero.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON decodes a quoted timestamp; null and "" leave it zero.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("timestamp must be a string, got %s", s)
	}
	parsed, err := ParseTimestamp(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
