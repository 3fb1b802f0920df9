package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DetectProjectRoot walks up from the current directory looking for a .sqf/
// directory. It returns the directory containing it.
func DetectProjectRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findStateRoot(dir)
}

// findStateRoot walks up from dir looking for a .sqf/ directory. It stops at
// the filesystem root and never climbs above the home directory.
func findStateRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		// Check if this directory contains .sqf/
		if info, err := os.Stat(filepath.Join(dir, StateDir)); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// ProjectRoot returns the detected project root, or the current directory
// when no .sqf/ exists above it.
func ProjectRoot() (string, error) {
	if root, ok := DetectProjectRoot(); ok {
		return root, nil
	}
	return os.Getwd()
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ExpandPath expands ~ and cleans path.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(expandHome(path))
}
