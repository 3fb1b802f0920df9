// Package export renders issues as Markdown reports.
package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/saimonmoore/sonarqube/pkg/model"
)

// GenerateMarkdown creates a markdown report of issues
func GenerateMarkdown(issues []model.Issue, title string) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))

	// Summary by severity, most severe first
	bySeverity := make(map[model.Severity]int)
	resolved := 0
	for _, i := range issues {
		bySeverity[i.Severity]++
		if i.Status.IsResolved() {
			resolved++
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total**: %d\n", len(issues)))
	sb.WriteString(fmt.Sprintf("- **Unresolved**: %d\n", len(issues)-resolved))
	sb.WriteString(fmt.Sprintf("- **Resolved**: %d\n\n", resolved))

	sb.WriteString("| Severity | Count |\n")
	sb.WriteString("|---|---|\n")
	for _, sev := range model.Severities {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", sev, bySeverity[sev]))
	}
	sb.WriteString("\n")

	if len(issues) > 0 {
		sb.WriteString("```mermaid\npie title Issues by severity\n")
		for _, sev := range model.Severities {
			if n := bySeverity[sev]; n > 0 {
				sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", sev, n))
			}
		}
		sb.WriteString("```\n\n")
	}

	sb.WriteString("## Table of Contents\n\n")
	for _, i := range issues {
		sb.WriteString(fmt.Sprintf("- [%s](#%s) %s (%s)\n", i.Key, anchor(i.Key), oneLine(i.Message, 60), i.Severity))
	}
	sb.WriteString("\n---\n\n")

	for _, i := range issues {
		sb.WriteString(IssueMarkdown(i))
		sb.WriteString("---\n\n")
	}

	return sb.String(), nil
}

// IssueMarkdown renders a single issue section. The TUI detail pane uses it
// as well.
func IssueMarkdown(i model.Issue) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", i.Key))
	if i.Message != "" {
		sb.WriteString(i.Message + "\n\n")
	}

	sb.WriteString("| Severity | Type | Status | Rule | Created |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	created := ""
	if !i.CreationDate.IsZero() {
		created = i.CreationDate.Format("2006-01-02")
	}
	sb.WriteString(fmt.Sprintf("| %s | %s | %s | `%s` | %s |\n\n",
		i.Severity, formatEnum(string(i.Type)), formatEnum(string(i.Status)), i.Rule, created))

	location := i.ShortComponent()
	if i.Line > 0 {
		location = fmt.Sprintf("%s:%d", location, i.Line)
	}
	if location != "" {
		sb.WriteString(fmt.Sprintf("- **Location**: `%s`\n", location))
	}
	if i.Project != "" {
		sb.WriteString(fmt.Sprintf("- **Project**: %s\n", i.Project))
	}
	if i.Author != "" {
		sb.WriteString(fmt.Sprintf("- **Author**: %s\n", i.Author))
	}
	if i.Effort != "" {
		sb.WriteString(fmt.Sprintf("- **Effort**: %s\n", i.Effort))
	}
	if i.Resolution != "" {
		sb.WriteString(fmt.Sprintf("- **Resolution**: %s\n", formatEnum(i.Resolution)))
	}
	if len(i.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("- **Tags**: %s\n", strings.Join(i.Tags, ", ")))
	}
	sb.WriteString("\n")

	return sb.String()
}

// SortForReport orders issues unresolved first, then by severity, then
// newest first.
func SortForReport(issues []model.Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		ar, br := issues[a].Status.IsResolved(), issues[b].Status.IsResolved()
		if ar != br {
			return !ar
		}
		if ra, rb := issues[a].Severity.Rank(), issues[b].Severity.Rank(); ra != rb {
			return ra < rb
		}
		return issues[a].CreationDate.After(issues[b].CreationDate.Time)
	})
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(issues []model.Issue, title, filename string) error {
	sorted := make([]model.Issue, len(issues))
	copy(sorted, issues)
	SortForReport(sorted)

	content, err := GenerateMarkdown(sorted, title)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// anchor approximates the heading anchor most renderers generate.
func anchor(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, s)
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

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
