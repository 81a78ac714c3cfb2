package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statelake/internal/value"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	FinalState   any          `json:"final_state"`
	RootDigest   string       `json:"root_digest"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		FinalState:   result.FinalState,
		RootDigest:   result.RootDigest,
	}
}

// toCanonicalMap converts a TraceSnapshot to plain Go values for
// canonical JSON serialization. Write fields are present only for steps
// that wrote; error only for rejected writes.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		notified := make([]any, len(event.Notified))
		for j, name := range event.Notified {
			notified[j] = name
		}
		eventMap := map[string]any{
			"step":     event.Step,
			"op":       event.Op,
			"path":     event.Path,
			"notified": notified,
		}
		if event.wrote() {
			changed := make([]any, len(event.Changed))
			for j, p := range event.Changed {
				changed[j] = p
			}
			eventMap["seq"] = event.Seq
			eventMap["kind"] = event.Kind
			eventMap["changed"] = changed
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"final_state":   s.FinalState,
		"root_digest":   s.RootDigest,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	v, err := value.From(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return value.MarshalCanonical(v)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
