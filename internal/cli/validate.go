package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-or-dir>...",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate scenario files without running them.

Checks YAML syntax, unknown fields, required fields, watcher and ref
references, and that the initial state (inline, CUE or file) can be built.
Directories are searched for .yaml and .yml files.

Exit codes:
  0 - All scenarios valid
  1 - One or more scenarios invalid
  2 - Command error (path not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := expandScenarioArgs(args)
	if err != nil {
		return formatter.fail(err)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	invalid := 0
	for _, path := range files {
		formatter.VerboseLog("Validating %s", path)
		fv := ValidateScenarioFile(path)
		if !fv.Valid {
			result.Valid = false
			invalid++
		}
		result.Files = append(result.Files, fv)
	}

	if result.Valid {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		for _, fv := range result.Files {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", fv.Path)
		}
		fmt.Fprintln(formatter.Writer, "✓ All scenarios valid")
		return nil
	}

	msg := fmt.Sprintf("validation failed with %d error(s)", invalid)
	if opts.Format == "json" {
		first := firstInvalid(result.Files)
		_ = formatter.Failure(result, first.Code, first.Message)
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", fv.Path)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n  %s: %s\n", fv.Path, fv.Code, fv.Message)
	}
	return NewExitError(ExitFailure, msg)
}

// ValidateScenarioFile validates one scenario file.
// This is a helper function for external callers.
func ValidateScenarioFile(path string) FileValidation {
	scenario, err := LoadScenarioFile(path)
	if err != nil {
		fv := FileValidation{Path: path, Code: ErrCodeGeneric, Message: err.Error()}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			fv.Code = loadErr.Code
			fv.Message = loadErr.Message
		}
		return fv
	}
	return FileValidation{Path: path, Name: scenario.Name, Valid: true}
}

func firstInvalid(files []FileValidation) FileValidation {
	for _, fv := range files {
		if !fv.Valid {
			return fv
		}
	}
	return FileValidation{}
}
