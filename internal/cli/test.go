package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/statelake/internal/harness"
	"github.com/roach88/statelake/internal/journal"
	"github.com/roach88/statelake/internal/lake"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter      string // scenario filter (glob pattern on the file name)
	Parallel    int    // scenarios run concurrently
	Journal     string // SQLite journal shared by all scenarios
	Watch       bool   // re-run on file changes
	MetricsAddr string // serve Prometheus metrics on this address
}

// watchDebounce batches editor write bursts into one re-run.
const watchDebounce = 150 * time.Millisecond

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run every scenario file (.yaml, .yml) under a directory.

Scenarios run concurrently, each against its own lake. With --watch the
suite re-runs whenever a scenario or state document changes, until
interrupted. With --metrics-addr the lake metrics of all runs are served
on /metrics in the Prometheus text format.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  statelake test ./scenarios
  statelake test ./scenarios --filter "structural*"
  statelake test ./scenarios --parallel 1 --journal ./lake.db
  statelake test ./scenarios --watch --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", runtime.GOMAXPROCS(0), "maximum scenarios run at once (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record writes into this SQLite journal")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-run when scenario files change")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Parallel < 0 {
		return formatter.fail(fmt.Errorf("--parallel must be non-negative, got %d", opts.Parallel))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := []harness.Option{harness.WithLogger(logger)}

	if opts.Journal != "" {
		st, err := journal.Open(opts.Journal)
		if err != nil {
			return formatter.fail(&LoadError{Code: ErrCodeJournalError, Message: err.Error(), Path: opts.Journal})
		}
		defer st.Close()
		runOpts = append(runOpts, harness.WithRecorder(journal.NewRecorder(ctx, st)))
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := lake.NewMetrics(reg)
		if err != nil {
			return formatter.fail(err)
		}
		runOpts = append(runOpts, harness.WithMetrics(metrics))
		addr, shutdown, err := serveMetrics(opts.MetricsAddr, reg, logger)
		if err != nil {
			return formatter.fail(fmt.Errorf("failed to serve metrics: %w", err))
		}
		defer shutdown()
		formatter.VerboseLog("Serving metrics on http://%s/metrics", addr)
	}

	runOnce := func() (*harness.SuiteResult, error) {
		files, err := FindScenarioFiles(dir, opts.Filter)
		if err != nil {
			return nil, err
		}
		formatter.VerboseLog("Running %d scenario(s) from %s", len(files), dir)
		return harness.RunSuite(ctx, files, opts.Parallel, runOpts...)
	}

	if !opts.Watch {
		res, err := runOnce()
		if err != nil {
			return formatter.fail(err)
		}
		return outputSuite(formatter, res)
	}

	if _, err := os.Stat(dir); err != nil {
		return formatter.fail(&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios directory not found: %s", dir)})
	}
	err := watchScenarios(ctx, dir, watchDebounce, logger, func() {
		res, err := runOnce()
		if err != nil {
			if ctx.Err() == nil {
				_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			}
			return
		}
		// Failures are reported and the watch goes on.
		_ = outputSuite(formatter, res)
		if opts.Format != "json" {
			fmt.Fprintf(formatter.Writer, "Watching %s for changes...\n", dir)
		}
	})
	if err != nil {
		return formatter.fail(err)
	}
	return nil
}

// outputSuite prints a suite result; a failed scenario yields exit code 1.
func outputSuite(formatter *OutputFormatter, res *harness.SuiteResult) error {
	if res.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", res.Failed)
		if formatter.Format == "json" {
			_ = formatter.Failure(res, ErrCodeTestFailed, msg)
			return NewExitError(ExitFailure, msg)
		}
		printOutcomes(formatter.Writer, res)
		return NewExitError(ExitFailure, msg)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	printOutcomes(formatter.Writer, res)
	fmt.Fprintln(formatter.Writer, "✓ All scenarios passed")
	return nil
}

func printOutcomes(w io.Writer, res *harness.SuiteResult) {
	for _, o := range res.Outcomes {
		name := o.Name
		if name == "" {
			name = filepath.Base(o.Path)
		}
		if o.Pass {
			fmt.Fprintf(w, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range o.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", res.Passed, res.Failed, res.Total)
}
