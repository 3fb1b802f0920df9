package preset

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Source tells where a preset was defined.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceUser    Source = "user"
)

// Summary is a one-line description of a preset for listings.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      Source `json:"source"`
}

// File is the on-disk shape of presets.yaml.
type File struct {
	Presets []Preset `yaml:"presets"`
}

// Loader merges built-in presets with the user's presets file. User presets
// with a built-in name replace the built-in.
type Loader struct {
	userPath string
	presets  map[string]Preset
	sources  map[string]Source
}

// NewLoader returns a loader reading user presets from userPath. An empty
// path loads built-ins only.
func NewLoader(userPath string) *Loader {
	return &Loader{userPath: userPath}
}

// Load (re)reads all presets. Invalid user presets are logged and skipped;
// an unreadable or malformed file is an error.
func (l *Loader) Load() error {
	l.presets = make(map[string]Preset)
	l.sources = make(map[string]Source)
	for _, p := range BuiltinPresets() {
		l.presets[p.Name] = p
		l.sources[p.Name] = SourceBuiltin
	}

	if l.userPath == "" {
		return nil
	}
	data, err := os.ReadFile(l.userPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading presets: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", l.userPath, err)
	}
	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			log.Printf("preset.Load: skipping: %v", err)
			continue
		}
		l.presets[p.Name] = p
		l.sources[p.Name] = SourceUser
	}
	return nil
}

// Get returns the preset called name.
func (l *Loader) Get(name string) (Preset, bool) {
	p, ok := l.presets[name]
	return p, ok
}

// Names returns all preset names, sorted.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.presets))
	for name := range l.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSummaries returns a summary per preset, sorted by name.
func (l *Loader) ListSummaries() []Summary {
	names := l.Names()
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		p := l.presets[name]
		out = append(out, Summary{Name: name, Description: p.Description, Source: l.sources[name]})
	}
	return out
}
