package harness

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ScenarioOutcome is the result of one scenario file in a suite run.
type ScenarioOutcome struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Outcomes []ScenarioOutcome `json:"outcomes"`
}

// FindScenarios returns the .yaml/.yml files under dir whose base name
// matches filter (a filepath.Match pattern; empty matches everything),
// sorted by path.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, filepath.Base(path)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario, at most parallel at a time
// (parallel <= 0 means unlimited). Load failures count as failed scenarios.
// Outcomes keep the order of paths.
//
// Returns an error only when ctx is cancelled before the suite finished.
func RunSuite(ctx context.Context, paths []string, parallel int, opts ...Option) (*SuiteResult, error) {
	outcomes := make([]ScenarioOutcome, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = runFile(path, opts...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &SuiteResult{Total: len(paths), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Pass {
			res.Passed++
		} else {
			res.Failed++
		}
	}
	return res, nil
}

func runFile(path string, opts ...Option) ScenarioOutcome {
	out := ScenarioOutcome{Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}
	out.Name = scenario.Name

	result, err := Run(scenario, opts...)
	if err != nil {
		out.Errors = []string{err.Error()}
		return out
	}

	out.Pass = result.Pass
	if !result.Pass {
		out.Errors = result.Errors
	}
	return out
}
