// Package config loads the per-project sqf configuration from
// .sqf/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StateDir is the per-project directory name holding sqf files.
const StateDir = ".sqf"

// FileName is the config file inside StateDir.
const FileName = "config.yaml"

// Config is the project configuration
type Config struct {
	Database       string        `yaml:"database"`
	IssuesFile     string        `yaml:"issues_file"`
	IssuePageSize  int           `yaml:"issue_page_size"`
	SearchPageSize int           `yaml:"search_page_size"`
	SearchTimeout  time.Duration `yaml:"search_timeout"`
	Watch          bool          `yaml:"watch"`
	DebounceDelay  time.Duration `yaml:"debounce_delay"`
	Facets         []FacetConfig `yaml:"facets"`
}

// FacetConfig describes one sidebar facet
type FacetConfig struct {
	Property        string `yaml:"property"`
	Header          string `yaml:"header,omitempty"`
	Placeholder     string `yaml:"placeholder,omitempty"`
	Open            bool   `yaml:"open,omitempty"`
	Searchable      bool   `yaml:"searchable,omitempty"`
	MaxInitialItems int    `yaml:"max_initial_items,omitempty"`
}

// DisplayHeader returns Header, falling back to a title-cased property.
func (f FacetConfig) DisplayHeader() string {
	if f.Header != "" {
		return f.Header
	}
	if f.Property == "" {
		return ""
	}
	return strings.ToUpper(f.Property[:1]) + f.Property[1:]
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		Database:       filepath.Join(StateDir, "sqf.db"),
		IssuesFile:     filepath.Join(StateDir, "issues.jsonl"),
		IssuePageSize:  50,
		SearchPageSize: 10,
		SearchTimeout:  10 * time.Second,
		Watch:          true,
		DebounceDelay:  200 * time.Millisecond,
		Facets: []FacetConfig{
			{Property: "severities", Header: "Severity", Open: true},
			{Property: "types", Header: "Type", Open: true},
			{Property: "statuses", Header: "Status"},
			{Property: "rules", Header: "Rule", Placeholder: "search for rules...", Open: true, Searchable: true, MaxInitialItems: 10},
			{Property: "projects", Header: "Project", Placeholder: "search for projects...", Searchable: true},
			{Property: "authors", Header: "Author", Placeholder: "search for authors...", Searchable: true},
			{Property: "tags", Header: "Tag", Placeholder: "search for tags...", Searchable: true},
		},
	}
}

// Load reads the config at path on top of Default. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	// Fields absent from the file keep their default values.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies
func (c Config) Validate() error {
	if c.IssuePageSize <= 0 {
		return fmt.Errorf("issue_page_size must be > 0, got %d", c.IssuePageSize)
	}
	if c.SearchPageSize <= 0 {
		return fmt.Errorf("search_page_size must be > 0, got %d", c.SearchPageSize)
	}
	if c.SearchTimeout < 0 {
		return fmt.Errorf("search_timeout cannot be negative")
	}
	seen := make(map[string]bool, len(c.Facets))
	for i, f := range c.Facets {
		if f.Property == "" {
			return fmt.Errorf("facet %d: property cannot be empty", i)
		}
		if seen[f.Property] {
			return fmt.Errorf("facet %q listed twice", f.Property)
		}
		seen[f.Property] = true
		if f.MaxInitialItems < 0 {
			return fmt.Errorf("facet %q: max_initial_items cannot be negative", f.Property)
		}
	}
	return nil
}

// Resolve returns the config with relative paths anchored at root.
func (c Config) Resolve(root string) Config {
	if c.Database != ":memory:" && !filepath.IsAbs(c.Database) {
		c.Database = filepath.Join(root, c.Database)
	}
	if c.IssuesFile != "" && !filepath.IsAbs(c.IssuesFile) {
		c.IssuesFile = filepath.Join(root, c.IssuesFile)
	}
	return c
}

// Path returns the config file location for a project root.
func Path(root string) string {
	return filepath.Join(root, StateDir, FileName)
}

// Save writes the config as YAML to path, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
