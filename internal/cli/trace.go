package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statelake/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	Lake    string // optional - filter to one lake
	Branch  string // optional - list the writes that changed this branch id
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Lake   string          `json:"lake,omitempty"`
	Branch string          `json:"branch,omitempty"`
	Writes []journal.Write `json:"writes"`
	Stats  TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Lakes         int            `json:"lakes"`
	TotalWrites   int            `json:"total_writes"`
	Notifications int            `json:"notifications"`
	Detached      int            `json:"detached"`
	ByKind        map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print journaled writes",
		Long: `Print the writes recorded in a journal.

Each write lists its sequence number, kind, and the branches whose state it
applied with their observer counts at the time of the write.

Examples:
  statelake trace --journal ./lake.db
  statelake trace --journal ./lake.db --lake structural_add
  statelake trace --journal ./lake.db --lake structural_add --branch b2
  statelake trace --journal ./lake.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Lake, "lake", "", "only show writes of this lake")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "only show writes that changed this branch id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	// Open creates missing databases; a trace of nothing is an error.
	if _, err := os.Stat(opts.Journal); err != nil {
		return formatter.fail(&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("journal not found: %s", opts.Journal)})
	}

	st, err := journal.Open(opts.Journal)
	if err != nil {
		return formatter.fail(&LoadError{Code: ErrCodeJournalError, Message: fmt.Sprintf("failed to open journal: %v", err)})
	}
	defer st.Close()

	writes, err := st.ReadWrites(ctx, opts.Lake)
	if err != nil {
		return formatter.fail(&LoadError{Code: ErrCodeJournalError, Message: fmt.Sprintf("failed to read writes: %v", err)})
	}

	if opts.Branch != "" {
		writes = filterByBranch(writes, opts.Branch)
	}

	result := TraceResult{
		Lake:   opts.Lake,
		Branch: opts.Branch,
		Writes: writes,
		Stats:  traceStats(writes),
	}
	if result.Writes == nil {
		result.Writes = []journal.Write{}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if len(writes) == 0 {
		fmt.Fprintln(w, "No writes recorded.")
		return nil
	}
	outputTraceText(w, result, opts.Verbose)
	return nil
}

func filterByBranch(writes []journal.Write, branchID string) []journal.Write {
	var out []journal.Write
	for _, w := range writes {
		for _, n := range w.Changed {
			if n.BranchID == branchID {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

func traceStats(writes []journal.Write) TraceStats {
	stats := TraceStats{ByKind: make(map[string]int)}
	lakes := make(map[string]bool)
	for _, w := range writes {
		lakes[w.Lake] = true
		stats.TotalWrites++
		stats.Notifications += w.Notified
		stats.Detached += w.Detached
		stats.ByKind[string(w.Kind)]++
	}
	stats.Lakes = len(lakes)
	return stats
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	current := ""
	for _, wr := range result.Writes {
		if wr.Lake != current {
			current = wr.Lake
			fmt.Fprintf(w, "Lake: %s\n", current)
		}
		fmt.Fprintf(w, "  #%d %s %s %s notified=%d detached=%d\n",
			wr.Seq, wr.Op, wr.Path, wr.Kind, wr.Notified, wr.Detached)
		for _, n := range wr.Changed {
			fmt.Fprintf(w, "      %-24s %s observers=%d\n", n.Path, n.BranchID, n.Observers)
		}
		if verbose && wr.RootDigest != "" {
			fmt.Fprintf(w, "      root %s\n", wr.RootDigest)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d write(s) in %d lake(s), %d notification(s), %d detached\n",
		result.Stats.TotalWrites, result.Stats.Lakes, result.Stats.Notifications, result.Stats.Detached)
}
