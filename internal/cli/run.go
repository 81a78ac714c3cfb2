package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statelake/internal/harness"
	"github.com/roach88/statelake/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string // SQLite journal to record writes into
	Golden  string // directory of golden traces to compare against
	Update  bool   // rewrite the golden trace instead of comparing
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario   string               `json:"scenario"`
	Pass       bool                 `json:"pass"`
	Golden     string               `json:"golden,omitempty"` // "match", "mismatch", "updated"
	Trace      []harness.TraceEvent `json:"trace"`
	Errors     []string             `json:"errors,omitempty"`
	FinalState any                  `json:"final_state"`
	RootDigest string               `json:"root_digest"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute one scenario",
		Long: `Execute a single scenario against a fresh lake and print its trace.

Every write is optionally journaled to a SQLite database, and the trace
can be compared against (or written to) a golden file named after the
scenario.

Exit codes:
  0 - Scenario passed
  1 - Expectation, assertion or golden mismatch
  2 - Command error (missing file, invalid scenario, journal error)

Examples:
  statelake run scenarios/structural_add.yaml
  statelake run scenarios/structural_add.yaml --journal ./lake.db
  statelake run scenarios/structural_add.yaml --golden testdata/golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record writes into this SQLite journal")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "compare the trace with <dir>/<scenario>.golden")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite the golden file (requires --golden)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if opts.Update && opts.Golden == "" {
		return formatter.fail(&LoadError{Code: ErrCodeGeneric, Message: "--update requires --golden"})
	}

	scenario, err := LoadScenarioFile(path)
	if err != nil {
		return formatter.fail(err)
	}
	formatter.VerboseLog("Loaded scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runOpts := []harness.Option{harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr()))}
	if opts.Journal != "" {
		st, err := journal.Open(opts.Journal)
		if err != nil {
			return formatter.fail(&LoadError{Code: ErrCodeJournalError, Message: err.Error(), Path: opts.Journal})
		}
		defer st.Close()
		last, err := st.GetLastSeq(ctx, scenario.LakeName())
		if err != nil {
			return formatter.fail(&LoadError{Code: ErrCodeJournalError, Message: err.Error(), Path: opts.Journal})
		}
		if last > 0 {
			formatter.VerboseLog("Journal already holds writes 1..%d of lake %s; those seqs are not rewritten", last, scenario.LakeName())
		}
		runOpts = append(runOpts, harness.WithRecorder(journal.NewRecorder(ctx, st)))
		formatter.VerboseLog("Journaling writes to %s", opts.Journal)
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return formatter.fail(err)
	}

	out := RunResult{
		Scenario:   scenario.Name,
		Pass:       result.Pass,
		Trace:      result.Trace,
		Errors:     result.Errors,
		FinalState: result.FinalState,
		RootDigest: result.RootDigest,
	}

	if opts.Golden != "" {
		status, err := checkGolden(opts.Golden, scenario.Name, result, opts.Update)
		if err != nil {
			return formatter.fail(err)
		}
		out.Golden = status
		if status == "mismatch" {
			out.Pass = false
			out.Errors = append(out.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	}

	if opts.Format == "json" {
		if out.Pass {
			return formatter.Success(out)
		}
		_ = formatter.Failure(out, failureCode(out), fmt.Sprintf("scenario %s failed", out.Scenario))
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	printTrace(w, out.Trace)
	fmt.Fprintf(w, "Root digest: %s\n", out.RootDigest)
	if out.Golden == "updated" {
		fmt.Fprintf(w, "Golden file updated: %s\n", goldenPath(opts.Golden, out.Scenario))
	}

	if !out.Pass {
		fmt.Fprintf(w, "✗ %s failed\n", out.Scenario)
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}
	fmt.Fprintf(w, "✓ %s passed\n", out.Scenario)
	return nil
}

func failureCode(out RunResult) string {
	if out.Golden == "mismatch" {
		return ErrCodeGoldenDiff
	}
	return ErrCodeTestFailed
}

// checkGolden compares the result's canonical snapshot with the golden file,
// or writes it when update is set. A missing golden file is a mismatch.
func checkGolden(dir, name string, result *harness.Result, update bool) (string, error) {
	snapshot := harness.NewSnapshot(name, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("failed to marshal trace: %w", err)
	}

	path := goldenPath(dir, name)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("failed to create golden directory: %v", err)}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("failed to write golden file: %v", err)}
		}
		return "updated", nil
	}

	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "mismatch", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, data) {
		return "mismatch", nil
	}
	return "match", nil
}

// printTrace writes one line per step.
func printTrace(w io.Writer, trace []harness.TraceEvent) {
	for _, ev := range trace {
		var b strings.Builder
		fmt.Fprintf(&b, "  [%d] %s %s", ev.Step, ev.Op, ev.Path)
		if ev.Error != "" {
			fmt.Fprintf(&b, " error=%s", ev.Error)
		}
		if ev.Seq != 0 {
			fmt.Fprintf(&b, " seq=%d %s changed=[%s]", ev.Seq, ev.Kind, strings.Join(ev.Changed, " "))
		}
		if len(ev.Notified) > 0 {
			fmt.Fprintf(&b, " notified=[%s]", strings.Join(ev.Notified, " "))
		}
		fmt.Fprintln(w, b.String())
	}
}
