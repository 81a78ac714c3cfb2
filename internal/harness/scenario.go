package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario drives a lake through a sequence of writes and subscriptions and
// checks which observers fire and what state results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Lake names the lake in recorded events. Defaults to Name.
	Lake string `yaml:"lake,omitempty"`

	// Initial is the initial root state as an inline YAML value.
	Initial yaml.Node `yaml:"initial,omitempty"`

	// InitialCUE is the initial root state as inline CUE source.
	InitialCUE string `yaml:"initial_cue,omitempty"`

	// InitialFile points at a .json, .yaml/.yml or .cue document holding the
	// initial root state, relative to the scenario file.
	InitialFile string `yaml:"initial_file,omitempty"`

	// Watchers are subscribed before the first step.
	Watchers []Watcher `yaml:"watchers,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and notification counts.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// baseDir resolves InitialFile; set by LoadScenario.
	baseDir string
}

// Watcher is a named observer on a path.
type Watcher struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Step is one operation against the lake.
type Step struct {
	// Op is one of: set, apply_merge, delete, subscribe, unsubscribe, resolve.
	Op string `yaml:"op"`

	// Path is the slash-separated branch path ("/" or "" is the root).
	Path string `yaml:"path,omitempty"`

	// Value is the value written by set, or the object merged by apply_merge.
	Value yaml.Node `yaml:"value,omitempty"`

	// Watcher names the observer for subscribe and unsubscribe.
	Watcher string `yaml:"watcher,omitempty"`

	// As labels the branch resolved by a resolve step for later assertions.
	As string `yaml:"as,omitempty"`

	// Expect checks the outcome of this step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect validates a single step.
type Expect struct {
	// Notified is the exact set of watchers the step must notify.
	// Nil skips the check; an empty list requires that nobody is notified.
	Notified *[]string `yaml:"notified,omitempty"`

	// State is the expected value at the step's path afterwards (deep equality).
	State yaml.Node `yaml:"state,omitempty"`

	// Error is the expected error code (e.g. NOT_CONTAINER). A step with an
	// unexpected error fails the scenario.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the lake after all steps ran.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is the branch path (state_equals, keys, same_ref).
	Path string `yaml:"path,omitempty"`

	// Value is the expected state (state_equals).
	Value yaml.Node `yaml:"value,omitempty"`

	// Keys are the expected enumerable keys in order (keys).
	Keys []string `yaml:"keys,omitempty"`

	// Ref names a branch captured by a resolve step (attached, same_ref, id_stable).
	Ref string `yaml:"ref,omitempty"`

	// Watcher names a watcher (notify_count).
	Watcher string `yaml:"watcher,omitempty"`

	// Count is the expected total notification count (notify_count).
	Count *int `yaml:"count,omitempty"`

	// Want is the expected outcome of boolean assertions. Defaults to true.
	Want *bool `yaml:"want,omitempty"`
}

// Scenario load failures wrap one of these.
var (
	ErrMalformedScenario = errors.New("failed to parse YAML")
	ErrInvalidScenario   = errors.New("invalid scenario")
)

// Step operations.
const (
	OpSet         = "set"
	OpApplyMerge  = "apply_merge"
	OpDelete      = "delete"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpResolve     = "resolve"
)

// Assertion type constants.
const (
	AssertStateEquals = "state_equals"
	AssertKeys        = "keys"
	AssertAttached    = "attached"
	AssertNotifyCount = "notify_count"
	AssertSameRef     = "same_ref"
	AssertIDStable    = "id_stable"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.baseDir = filepath.Dir(path)

	if scenario.InitialFile != "" {
		if _, err := os.Stat(scenario.initialPath()); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: initial_file not found: %s", ErrInvalidScenario, scenario.initialPath())
		}
	}

	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
// An initial_file is resolved against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedScenario, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	return &scenario, nil
}

func (s *Scenario) initialPath() string {
	if filepath.IsAbs(s.InitialFile) || s.baseDir == "" {
		return s.InitialFile
	}
	return filepath.Join(s.baseDir, s.InitialFile)
}

// LakeName returns the configured lake name, or the scenario name.
func (s *Scenario) LakeName() string {
	if s.Lake != "" {
		return s.Lake
	}
	return s.Name
}

// present reports whether a YAML field was set at all (null counts as set).
func present(n yaml.Node) bool {
	return n.Kind != 0
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	sources := 0
	for _, set := range []bool{present(s.Initial), s.InitialCUE != "", s.InitialFile != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("initial, initial_cue and initial_file are mutually exclusive")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	watchers := make(map[string]bool)
	for i, w := range s.Watchers {
		if w.Name == "" {
			return fmt.Errorf("watchers[%d]: name is required", i)
		}
		if watchers[w.Name] {
			return fmt.Errorf("watchers[%d]: duplicate watcher %q", i, w.Name)
		}
		watchers[w.Name] = true
	}

	refs := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, &step, watchers, refs); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, watchers, refs); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step and records the watchers and refs it declares.
func validateStep(index int, step *Step, watchers, refs map[string]bool) error {
	switch step.Op {
	case OpSet:
		if !present(step.Value) {
			return fmt.Errorf("steps[%d]: value is required for set (use null to clear)", index)
		}
	case OpApplyMerge:
		if step.Value.Kind != yaml.MappingNode {
			return fmt.Errorf("steps[%d]: value must be a mapping for apply_merge", index)
		}
	case OpDelete:
	case OpSubscribe:
		if step.Watcher == "" {
			return fmt.Errorf("steps[%d]: watcher is required for subscribe", index)
		}
		if watchers[step.Watcher] {
			return fmt.Errorf("steps[%d]: watcher %q already declared", index, step.Watcher)
		}
		watchers[step.Watcher] = true
	case OpUnsubscribe:
		if !watchers[step.Watcher] {
			return fmt.Errorf("steps[%d]: unknown watcher %q", index, step.Watcher)
		}
	case OpResolve:
		if step.As != "" {
			refs[step.As] = true
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.As != "" && step.Op != OpResolve {
		return fmt.Errorf("steps[%d]: as is only valid for resolve", index)
	}

	if step.Expect != nil && step.Expect.Notified != nil {
		for _, name := range *step.Expect.Notified {
			if !watchers[name] {
				return fmt.Errorf("steps[%d].expect: unknown watcher %q", index, name)
			}
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, watchers, refs map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStateEquals:
		if !present(a.Value) {
			return fmt.Errorf("assertions[%d]: value is required for state_equals", index)
		}
	case AssertKeys:
		if a.Keys == nil {
			return fmt.Errorf("assertions[%d]: keys is required for keys (use [] for none)", index)
		}
	case AssertNotifyCount:
		if !watchers[a.Watcher] {
			return fmt.Errorf("assertions[%d]: unknown watcher %q", index, a.Watcher)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notify_count", index)
		}
	case AssertAttached, AssertIDStable, AssertSameRef:
		if !refs[a.Ref] {
			return fmt.Errorf("assertions[%d]: unknown ref %q", index, a.Ref)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
