package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/saimonmoore/sonarqube/pkg/preset"
	"github.com/saimonmoore/sonarqube/pkg/store"
)

const cliIssues = `{"key":"C1","rule":"go:S1144","severity":"MAJOR","component":"web:a.go","project":"web","message":"unused","type":"CODE_SMELL","status":"OPEN","creationDate":"2024-03-01T10:00:00+0100","updateDate":"2024-03-01T10:00:00+0100"}
{"key":"C2","rule":"go:S2068","severity":"BLOCKER","component":"web:b.go","project":"web","message":"password","type":"VULNERABILITY","status":"OPEN","tags":["cwe"],"creationDate":"2024-03-02T10:00:00+0100","updateDate":"2024-03-02T10:00:00+0100"}
{"key":"C3","rule":"go:S1192","severity":"MINOR","component":"api:c.go","project":"api","message":"duplicated literal","type":"CODE_SMELL","status":"CLOSED","creationDate":"2024-03-03T10:00:00+0100","updateDate":"2024-03-03T10:00:00+0100"}
`

// setupProject creates a project with a .sqf/ dir and an issues.jsonl in
// the root, and makes it the working directory.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".sqf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "issues.jsonl"), []byte(cliIssues), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(root)
	return root
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("sqf %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func importFixture(t *testing.T) {
	t.Helper()
	out := mustRun(t, "import")
	if !strings.Contains(out, "Imported 3 issues") {
		t.Fatalf("unexpected import output: %q", out)
	}
}

func TestVersion(t *testing.T) {
	setupProject(t)
	out := mustRun(t, "--version")
	if !strings.Contains(out, version) {
		t.Errorf("version output %q does not mention %q", out, version)
	}
}

func TestImport(t *testing.T) {
	root := setupProject(t)
	importFixture(t)

	if _, err := os.Stat(filepath.Join(root, ".sqf", "sqf.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
	copied, err := os.ReadFile(filepath.Join(root, ".sqf", "issues.jsonl"))
	if err != nil {
		t.Fatalf("normalized issues file not written: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(string(copied)), "\n") + 1; n != 3 {
		t.Errorf("normalized file has %d lines, want 3", n)
	}
	gitignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		t.Fatalf(".gitignore not written: %v", err)
	}
	if !strings.Contains(string(gitignore), ".sqf/") {
		t.Errorf(".gitignore does not cover .sqf/: %q", gitignore)
	}

	// A second import reads the normalized copy.
	importFixture(t)
}

func TestImport_NoFile(t *testing.T) {
	root := setupProject(t)
	if err := os.Remove(filepath.Join(root, "issues.jsonl")); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import"); err == nil {
		t.Fatal("expected error without an issues file")
	}
}

func TestFacets(t *testing.T) {
	setupProject(t)
	importFixture(t)

	var stats map[string][]facetValue
	out := mustRun(t, "facets", "--property", "severities,projects")
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d facets, want 2: %v", len(stats), stats)
	}
	projects := stats["projects"]
	if len(projects) != 2 || projects[0] != (facetValue{Value: "web", Count: 2}) {
		t.Errorf("projects = %v", projects)
	}

	// A facet ignores its own selection.
	out = mustRun(t, "facets", "--property", "projects,types", "--filter", "projects=api")
	stats = nil
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(stats["projects"]) != 2 {
		t.Errorf("projects = %v, want both values", stats["projects"])
	}
	if types := stats["types"]; len(types) != 1 || types[0] != (facetValue{Value: "CODE_SMELL", Count: 1}) {
		t.Errorf("types = %v", types)
	}
}

func TestFacets_Errors(t *testing.T) {
	setupProject(t)
	importFixture(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown property", []string{"facets", "--property", "colors"}},
		{"malformed filter", []string{"facets", "--filter", "severities"}},
		{"unknown filter property", []string{"facets", "--filter", "colors=red"}},
		{"unknown preset", []string{"facets", "--preset", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}

	_, err := run(t, "facets", "--filter", "colors=red")
	if !errors.Is(err, store.ErrUnknownProperty) {
		t.Errorf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	setupProject(t)
	importFixture(t)

	var page struct {
		Results []string `json:"results"`
		Paging  struct {
			PageIndex int `json:"pageIndex"`
			Total     int `json:"total"`
		} `json:"paging"`
	}
	out := mustRun(t, "search", "rules", "S1")
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if strings.Join(page.Results, ",") != "go:S1144,go:S1192" {
		t.Errorf("results = %v", page.Results)
	}
	if page.Paging.Total != 2 || page.Paging.PageIndex != 1 {
		t.Errorf("paging = %+v", page.Paging)
	}

	if _, err := run(t, "search", "colors", "x"); !errors.Is(err, store.ErrUnknownProperty) {
		t.Errorf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestIssues(t *testing.T) {
	setupProject(t)
	importFixture(t)

	var result issuesOutput
	out := mustRun(t, "issues")
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if result.Paging.Total != 3 || len(result.Issues) != 3 {
		t.Fatalf("got %d issues (total %d), want 3", len(result.Issues), result.Paging.Total)
	}
	if result.Issues[0].Key != "C2" {
		t.Errorf("first issue = %s, want the blocker C2", result.Issues[0].Key)
	}

	result = issuesOutput{}
	out = mustRun(t, "issues", "--preset", "blockers")
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if result.Paging.Total != 1 || result.Issues[0].Key != "C2" {
		t.Errorf("blockers preset returned %+v", result)
	}

	result = issuesOutput{}
	out = mustRun(t, "issues", "--filter", "statuses=CLOSED")
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if result.Paging.Total != 1 || result.Issues[0].Key != "C3" {
		t.Errorf("status filter returned %+v", result)
	}
}

func TestIssues_MemoryDatabase(t *testing.T) {
	setupProject(t)

	var result issuesOutput
	out := mustRun(t, "--db", ":memory:", "issues")
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if result.Paging.Total != 0 || len(result.Issues) != 0 {
		t.Errorf("fresh database returned %+v", result)
	}
}

func TestExportMarkdown(t *testing.T) {
	root := setupProject(t)
	importFixture(t)

	out := mustRun(t, "export-md", "report.md", "--preset", "blockers")
	if !strings.Contains(out, "Exported 1 issues") {
		t.Errorf("unexpected output %q", out)
	}
	data, err := os.ReadFile(filepath.Join(root, "report.md"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	report := string(data)
	if !strings.Contains(report, "Issue Report: blockers") {
		t.Errorf("report title missing:\n%s", report)
	}
	if !strings.Contains(report, "C2") || strings.Contains(report, "C3") {
		t.Errorf("report has wrong issues:\n%s", report)
	}
}

func TestPresets(t *testing.T) {
	root := setupProject(t)
	user := "presets:\n  - name: web\n    description: Web project\n    filters:\n      projects: [web]\n"
	if err := os.WriteFile(filepath.Join(root, ".sqf", "presets.yaml"), []byte(user), 0o644); err != nil {
		t.Fatal(err)
	}

	var summaries []preset.Summary
	out := mustRun(t, "presets")
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	found := map[string]preset.Source{}
	for _, s := range summaries {
		found[s.Name] = s.Source
	}
	if found["blockers"] != preset.SourceBuiltin {
		t.Errorf("blockers source = %q", found["blockers"])
	}
	if found["web"] != preset.SourceUser {
		t.Errorf("web source = %q", found["web"])
	}

	importFixture(t)
	var result issuesOutput
	out = mustRun(t, "issues", "--preset", "web")
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if result.Paging.Total != 2 {
		t.Errorf("web preset matched %d issues, want 2", result.Paging.Total)
	}
}

func TestConfigFlag(t *testing.T) {
	root := setupProject(t)
	cfgPath := filepath.Join(root, "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte("issue_page_size: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	importFixture(t)

	var result issuesOutput
	out := mustRun(t, "--config", cfgPath, "issues", "--page", "2")
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(result.Issues) != 1 || result.Paging.PageIndex != 2 || result.Paging.PageSize != 1 {
		t.Errorf("paging = %+v with %d issues", result.Paging, len(result.Issues))
	}

	if err := os.WriteFile(cfgPath, []byte("issue_page_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", cfgPath, "issues"); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestRoot_RequiresTerminal(t *testing.T) {
	setupProject(t)

	origTerm, origTUI := isTerminal, runTUI
	t.Cleanup(func() { isTerminal, runTUI = origTerm, origTUI })

	var launched string
	runTUI = func(a *app, presetName string) error {
		launched = "preset=" + presetName
		return nil
	}

	isTerminal = func() bool { return false }
	if _, err := run(t); err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if launched != "" {
		t.Fatal("browser launched without a terminal")
	}

	isTerminal = func() bool { return true }
	mustRun(t, "-p", "security")
	if launched != "preset=security" {
		t.Errorf("launched = %q", launched)
	}
}

func TestSortedStats(t *testing.T) {
	got := sortedStats(map[string]int{"b": 1, "a": 1, "c": 5})
	want := []facetValue{{"c", 5}, {"a", 1}, {"b", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
