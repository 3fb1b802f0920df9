package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/saimonmoore/sonarqube/pkg/config"
	"github.com/saimonmoore/sonarqube/pkg/preset"
	"github.com/saimonmoore/sonarqube/pkg/store"
	"github.com/saimonmoore/sonarqube/pkg/ui"
)

var version = "dev"

// isTerminal reports whether stdout is attached to a terminal.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the resolved project settings shared by every command.
type app struct {
	dbFlag     string
	configFlag string

	root string
	cfg  config.Config
}

// setup finds the project root and loads its configuration.
func (a *app) setup() error {
	root, err := config.ProjectRoot()
	if err != nil {
		return fmt.Errorf("finding project root: %w", err)
	}
	path := config.Path(root)
	if a.configFlag != "" {
		path = config.ExpandPath(a.configFlag)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = cfg.Resolve(root)
	if a.dbFlag != "" {
		cfg.Database = a.dbFlag
		if cfg.Database != ":memory:" {
			cfg.Database = config.ExpandPath(cfg.Database)
		}
	}
	a.root = root
	a.cfg = cfg
	return nil
}

// openStore opens the configured database, creating its directory.
func (a *app) openStore() (*store.Store, error) {
	if a.cfg.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.Database), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return store.Open(a.cfg.Database)
}

func (a *app) presetsPath() string {
	return filepath.Join(a.root, config.StateDir, "presets.yaml")
}

func (a *app) loadPresets() (*preset.Loader, error) {
	l := preset.NewLoader(a.presetsPath())
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// filter combines an optional preset with --filter prop=v1,v2 flags. Flags
// replace the preset's values for the same property.
func (a *app) filter(presetName string, flags []string) (store.Filter, error) {
	f := store.Filter{}
	if presetName != "" {
		l, err := a.loadPresets()
		if err != nil {
			return store.Filter{}, err
		}
		p, ok := l.Get(presetName)
		if !ok {
			return store.Filter{}, fmt.Errorf("unknown preset %q (available: %s)", presetName, strings.Join(l.Names(), ", "))
		}
		if f, err = p.Filter(time.Now()); err != nil {
			return store.Filter{}, err
		}
	}
	for _, raw := range flags {
		prop, values, ok := strings.Cut(raw, "=")
		if !ok {
			return store.Filter{}, fmt.Errorf("invalid filter %q: want property=value[,value]", raw)
		}
		prop = strings.TrimSpace(prop)
		if !store.KnownProperty(prop) {
			return store.Filter{}, fmt.Errorf("%w: %s", store.ErrUnknownProperty, prop)
		}
		var vals []string
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				vals = append(vals, v)
			}
		}
		f = f.With(prop, vals)
	}
	return f, nil
}

func (a *app) context() (context.Context, context.CancelFunc) {
	if a.cfg.SearchTimeout > 0 {
		return context.WithTimeout(context.Background(), a.cfg.SearchTimeout)
	}
	return context.WithCancel(context.Background())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{}
	var presetName string

	root := &cobra.Command{
		Use:           "sqf",
		Short:         "Browse SonarQube issues by facet",
		Long:          "sqf imports a SonarQube issues export into a local database and lets you narrow it down facet by facet.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return errors.New("the browser needs a terminal; use a subcommand such as 'sqf issues' for scripted output")
			}
			return runTUI(a, presetName)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.dbFlag, "db", "", "Database path (overrides config)")
	root.PersistentFlags().StringVar(&a.configFlag, "config", "", "Config file (default .sqf/config.yaml)")
	root.Flags().StringVarP(&presetName, "preset", "p", "", "Apply a named preset at startup")

	root.AddCommand(
		importCmd(a),
		facetsCmd(a),
		searchCmd(a),
		issuesCmd(a),
		exportCmd(a),
		presetsCmd(a),
	)
	return root
}

// runTUI launches the browser in the alternate screen, with a worker that
// re-imports the issues file when it changes.
var runTUI = func(a *app, presetName string) error {
	stateDir := filepath.Join(a.root, config.StateDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return err
	}
	logFile, err := tea.LogToFile(filepath.Join(stateDir, "debug.log"), "sqf")
	if err != nil {
		return fmt.Errorf("opening debug log: %w", err)
	}
	defer logFile.Close()

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	presets, err := a.loadPresets()
	if err != nil {
		return err
	}

	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
		IssuesPath:    a.cfg.IssuesFile,
		Store:         s,
		DebounceDelay: a.cfg.DebounceDelay,
	})
	if err != nil {
		return err
	}
	defer worker.Stop()

	m, err := ui.NewModel(ui.ModelConfig{
		Store:    s,
		Settings: a.cfg,
		Presets:  presets,
		Preset:   presetName,
		Worker:   worker,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	worker.SetProgram(p)
	if a.cfg.Watch {
		if err := worker.Start(); err != nil {
			log.Printf("runTUI: %v", err)
		}
	}
	if n, err := s.Count(context.Background()); err == nil && n == 0 {
		worker.TriggerRefresh()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}
