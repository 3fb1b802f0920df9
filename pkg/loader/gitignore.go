package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-project directory holding the database, config
// and presets.
const StateDirName = ".sqf"

const gitignoreComment = "# sqf local database and config"

// EnsureStateDirInGitignore makes sure the project's .gitignore covers the
// .sqf/ state directory so the local database is never committed.
//
// Calling it repeatedly is harmless. A missing .gitignore is created and
// existing content is preserved.
func EnsureStateDirInGitignore(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")

	// Check if .sqf is already in .gitignore
	covered, err := isStateDirIgnored(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if covered {
		return nil
	}

	// Append .sqf/ to .gitignore
	return appendToGitignore(gitignorePath, StateDirName+"/")
}

// isStateDirIgnored scans a .gitignore for a line covering the state dir.
func isStateDirIgnored(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversStateDir(line) {
			return true, nil
		}
	}

	return false, scanner.Err()
}

// coversStateDir reports whether a gitignore pattern ignores the whole
// state directory. Leading slashes are ignored.
func coversStateDir(line string) bool {
	// Normalize: anchored patterns match the same directory
	normalized := strings.TrimPrefix(line, "/")
	rest, ok := strings.CutPrefix(normalized, StateDirName)
	if !ok {
		return false
	}
	switch rest {
	case "", "/", "/*", "/**", "/**/*":
		return true
	}
	return false
}

// appendToGitignore appends pattern under a comment, creating the file when
// needed and keeping a blank line between existing content and the new
// block.
func appendToGitignore(path string, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Separate the new block from existing content
	var b strings.Builder
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(gitignoreComment + "\n" + pattern + "\n")

	_, err = file.WriteString(b.String())
	return err
}
