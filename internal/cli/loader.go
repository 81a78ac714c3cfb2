package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/statelake/internal/harness"
	"github.com/roach88/statelake/internal/value"
)

// LoadError represents an error that occurred while loading a scenario or
// state document.
type LoadError struct {
	Code    string
	Message string
	Path    string // file the error refers to, if any
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeScanError       = "E002" // Directory scan error
	ErrCodeNoFiles         = "E003" // No scenario files found
	ErrCodeParseFailed     = "E004" // YAML, JSON or CUE could not be parsed
	ErrCodeNotFound        = "E005" // Path not found
	ErrCodeInvalidScenario = "E006" // Scenario failed validation
	ErrCodeWriteFailed     = "E007" // File write error

	ErrCodeTestFailed   = "E100" // One or more scenarios failed
	ErrCodeGoldenDiff   = "E101" // Trace differs from its golden file
	ErrCodeJournalError = "E200" // Journal could not be opened or read
)

// LoadScenarioFile loads a scenario and checks that its initial state can be
// built. Errors are *LoadError.
func LoadScenarioFile(path string) (*harness.Scenario, error) {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return nil, &LoadError{Code: scenarioErrorCode(err), Message: err.Error(), Path: path}
	}
	if _, err := scenario.InitialState(); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("initial state: %v", err), Path: path}
	}
	return scenario, nil
}

func scenarioErrorCode(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.Is(err, harness.ErrMalformedScenario):
		return ErrCodeParseFailed
	case errors.Is(err, harness.ErrInvalidScenario):
		return ErrCodeInvalidScenario
	default:
		return ErrCodeGeneric
	}
}

// LoadStateDocument loads a .json, .yaml/.yml or .cue state document.
func LoadStateDocument(path string) (value.Value, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path), Path: path}
	}
	v, err := harness.LoadDocument(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), Path: path}
	}
	return v, nil
}

// FindScenarioFiles returns the scenario files under dir matching filter.
// A missing directory and an empty result are errors.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenarios directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := harness.FindScenarios(dir, filter)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error()}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no scenario files found in %s", dir)}
	}
	return files, nil
}

// expandScenarioArgs turns file and directory arguments into scenario files.
func expandScenarioArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", arg)}
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := FindScenarioFiles(arg, "")
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// goldenPath returns the golden file of a scenario in dir.
func goldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+".golden")
}
