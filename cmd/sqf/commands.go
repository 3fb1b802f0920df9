package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/saimonmoore/sonarqube/pkg/export"
	"github.com/saimonmoore/sonarqube/pkg/facet"
	"github.com/saimonmoore/sonarqube/pkg/loader"
	"github.com/saimonmoore/sonarqube/pkg/model"
	"github.com/saimonmoore/sonarqube/pkg/store"
)

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a SonarQube issues export (JSONL or api/issues/search JSON)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.importSource(args)
			if err != nil {
				return err
			}
			issues, err := loader.LoadIssuesFromFile(src)
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.context()
			defer cancel()
			if err := s.ReplaceIssues(ctx, src, issues); err != nil {
				return err
			}

			// Keep a normalized copy where the browser's watcher looks.
			if a.cfg.IssuesFile != "" && filepath.Clean(src) != filepath.Clean(a.cfg.IssuesFile) {
				if err := loader.WriteIssuesJSONL(a.cfg.IssuesFile, issues); err != nil {
					return err
				}
			}
			if err := loader.EnsureStateDirInGitignore(a.root); err != nil {
				log.Printf("import: updating .gitignore: %v", err)
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not update .gitignore: %v\n", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d issues from %s\n", len(issues), src)
			return nil
		},
	}
}

// importSource picks the file to import: the argument, the configured
// issues file, or a well-known name in the project root.
func (a *app) importSource(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if a.cfg.IssuesFile != "" {
		if _, err := os.Stat(a.cfg.IssuesFile); err == nil {
			return a.cfg.IssuesFile, nil
		}
	}
	path, err := loader.FindIssuesFile(a.root)
	if errors.Is(err, loader.ErrNoIssuesFile) {
		return "", fmt.Errorf("%w; pass a file to import", err)
	}
	return path, err
}

// facetValue is one row of facet stats output.
type facetValue struct {
	Value string `json:"val"`
	Count int    `json:"count"`
}

// sortedStats orders stats by count, then value.
func sortedStats(stats map[string]int) []facetValue {
	out := make([]facetValue, 0, len(stats))
	for v, c := range stats {
		out = append(out, facetValue{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func facetsCmd(a *app) *cobra.Command {
	var (
		presetName string
		properties []string
		filters    []string
	)
	cmd := &cobra.Command{
		Use:   "facets",
		Short: "Print facet value counts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.filter(presetName, filters)
			if err != nil {
				return err
			}
			if len(properties) == 0 {
				for _, fc := range a.cfg.Facets {
					properties = append(properties, fc.Property)
				}
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.context()
			defer cancel()
			stats, err := s.AllFacetStats(ctx, properties, f)
			if err != nil {
				return err
			}

			out := make(map[string][]facetValue, len(stats))
			for prop, values := range stats {
				out[prop] = sortedStats(values)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Apply a named preset")
	cmd.Flags().StringSliceVar(&properties, "property", nil, "Facet properties to report (default: configured facets)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Restrict issues, e.g. --filter severities=BLOCKER,CRITICAL")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <property> <query>",
		Short: "Search the values of one facet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store.KnownProperty(args[0]) {
				return fmt.Errorf("%w: %s", store.ErrUnknownProperty, args[0])
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.context()
			defer cancel()
			result, err := s.SearchFacetValues(ctx, args[0], args[1], page, a.cfg.SearchPageSize)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Result page (1-based)")
	return cmd
}

// issuesOutput is the JSON shape of the issues command.
type issuesOutput struct {
	Issues []model.Issue `json:"issues"`
	Paging facet.Paging  `json:"paging"`
}

func issuesCmd(a *app) *cobra.Command {
	var (
		presetName string
		page       int
		filters    []string
	)
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Print matching issues as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.filter(presetName, filters)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.context()
			defer cancel()
			issues, paging, err := s.SearchIssues(ctx, f, page, a.cfg.IssuePageSize)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), issuesOutput{Issues: issues, Paging: paging})
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Apply a named preset")
	cmd.Flags().IntVar(&page, "page", 1, "Result page (1-based)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Restrict issues, e.g. --filter types=BUG")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var (
		presetName string
		title      string
		filters    []string
	)
	cmd := &cobra.Command{
		Use:   "export-md <file>",
		Short: "Export matching issues to a Markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.filter(presetName, filters)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := a.context()
			defer cancel()

			var all []model.Issue
			for page := 1; ; page++ {
				issues, paging, err := s.SearchIssues(ctx, f, page, a.cfg.IssuePageSize)
				if err != nil {
					return err
				}
				all = append(all, issues...)
				if len(issues) == 0 || len(all) >= paging.Total {
					break
				}
			}

			if title == "" {
				title = "Issue Report"
				if presetName != "" {
					title += ": " + presetName
				}
			}
			if err := export.SaveMarkdownToFile(all, title, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d issues to %s\n", len(all), args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Apply a named preset")
	cmd.Flags().StringVar(&title, "title", "", "Report title")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Restrict issues, e.g. --filter projects=web")
	return cmd
}

func presetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List available presets as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.loadPresets()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), l.ListSummaries())
		},
	}
}
