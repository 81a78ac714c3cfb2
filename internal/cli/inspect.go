package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statelake/internal/lake"
	"github.com/roach88/statelake/internal/value"
)

// InspectResult describes the value at one path of a state document.
type InspectResult struct {
	File   string   `json:"file"`
	Path   string   `json:"path"`
	Kind   string   `json:"kind"`
	Keys   []string `json:"keys"`
	Digest string   `json:"digest"`
	Value  any      `json:"value"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <state.json|yaml|cue> [path]",
		Short: "Show the value at a path of a state document",
		Long: `Load a state document into a lake and show the value, kind, keys and
content digest of the branch at a slash-separated path (default: the root).

Missing paths resolve to undefined rather than failing.

Examples:
  statelake inspect state.json
  statelake inspect state.yaml /cart/items
  statelake inspect state.cue /owner --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			return runInspect(rootOpts, args[0], path, cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, file, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	doc, err := LoadStateDocument(file)
	if err != nil {
		return formatter.fail(err)
	}

	l := lake.New(doc,
		lake.WithName(filepath.Base(file)),
		lake.WithLogger(newLogger(opts, cmd.ErrOrStderr())),
	)
	keys := value.ParsePath(path)
	b := l.Resolve(keys...)
	state := b.Snapshot()

	digest, err := value.Digest(state)
	if err != nil {
		return formatter.fail(err)
	}

	result := InspectResult{
		File:   file,
		Path:   value.FormatPath(keys),
		Kind:   value.KindOf(state).String(),
		Keys:   value.Keys(state),
		Digest: digest,
		Value:  value.ToAny(state),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	rendered, err := json.MarshalIndent(result.Value, "", "  ")
	if err != nil {
		return formatter.fail(err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Path:   %s\n", result.Path)
	fmt.Fprintf(w, "Kind:   %s\n", result.Kind)
	if len(result.Keys) > 0 {
		fmt.Fprintf(w, "Keys:   %s\n", strings.Join(result.Keys, ", "))
	}
	fmt.Fprintf(w, "Digest: %s\n", result.Digest)
	fmt.Fprintf(w, "Value:\n%s\n", rendered)
	return nil
}
