// Package loader reads issue exports from disk and manages the per-project
// state directory.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/saimonmoore/sonarqube/pkg/model"
)

// IssuesFileNames are looked up, in order, by FindIssuesFile.
var IssuesFileNames = []string{"issues.jsonl", "issues.json"}

// ErrNoIssuesFile is returned when a directory has none of IssuesFileNames.
var ErrNoIssuesFile = errors.New("no issues file found")

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// searchResponse is the shape of a saved issues search response.
type searchResponse struct {
	Issues []model.Issue `json:"issues"`
}

// LoadIssuesFromFile reads issues from a JSONL file (one issue per line) or
// from a JSON document of the form {"issues": [...]}.
//
// In JSONL mode blank lines are skipped and lines that fail to decode or
// validate are logged and skipped. A search document is decoded as a whole.
func LoadIssuesFromFile(path string) ([]model.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading issues file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Issue{}, nil
	}
	if isSearchDocument(trimmed) {
		return decodeSearchDocument(path, trimmed)
	}
	return decodeJSONL(path, trimmed)
}

// isSearchDocument reports whether data is a single object with an
// "issues" array rather than the first line of a JSONL stream.
func isSearchDocument(data []byte) bool {
	if data[0] != '{' {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe["issues"]
	return ok
}

func decodeSearchDocument(path string, data []byte) ([]model.Issue, error) {
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	issues := make([]model.Issue, 0, len(resp.Issues))
	for idx, issue := range resp.Issues {
		if err := issue.Validate(); err != nil {
			log.Printf("LoadIssuesFromFile: %s: skipping issue %d: %v", path, idx, err)
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func decodeJSONL(path string, data []byte) ([]model.Issue, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var issues []model.Issue
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var issue model.Issue
		if err := json.Unmarshal(line, &issue); err != nil {
			log.Printf("LoadIssuesFromFile: %s:%d: malformed issue: %v", path, lineNo, err)
			continue
		}
		if err := issue.Validate(); err != nil {
			log.Printf("LoadIssuesFromFile: %s:%d: invalid issue: %v", path, lineNo, err)
			continue
		}
		issues = append(issues, issue)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	if issues == nil {
		issues = []model.Issue{}
	}
	return issues, nil
}

// FindIssuesFile returns the first of IssuesFileNames present in dir.
func FindIssuesFile(dir string) (string, error) {
	for _, name := range IssuesFileNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoIssuesFile, dir)
}

// WriteIssuesJSONL writes issues to path, one JSON object per line.
func WriteIssuesJSONL(path string, issues []model.Issue) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range issues {
		if err := enc.Encode(&issues[i]); err != nil {
			return fmt.Errorf("encoding issue %s: %w", issues[i].Key, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
