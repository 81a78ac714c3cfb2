package harness

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statelake/internal/lake"
	"github.com/roach88/statelake/internal/value"
)

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	return scenario
}

func TestRun_InPlaceLeafUpdate(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/in_place_leaf_update.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	write := result.Trace[1]
	assert.Equal(t, int64(1), write.Seq)
	assert.Equal(t, string(lake.WriteInPlace), write.Kind)
	assert.Equal(t, []string{"/a/x"}, write.Changed)
	assert.Equal(t, []string{"x"}, write.Notified)
	assert.Equal(t, map[string]any{"a": map[string]any{"x": int64(2)}}, result.FinalState)
	assert.Len(t, result.RootDigest, 64)
}

func TestRun_NonWritingStepsHaveNoSeq(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/parent_drops_key.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Zero(t, result.Trace[0].Seq, "resolve does not write")
	assert.Zero(t, result.Trace[2].Seq, "unsubscribe does not write")
	assert.Equal(t, "/", result.Trace[2].Path)
	assert.Empty(t, result.Trace[2].Notified)
}

func TestRun_ExpectationFailure(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_expectation
description: expects the parent to be notified by an in-place leaf write
initial: {a: {x: 1}}
watchers:
  - {name: a, path: /a}
  - {name: x, path: /a/x}
steps:
  - op: set
    path: /a/x
    value: 2
    expect:
      notified: [a]
      state: 3
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "step 0: expected notified [a], got [x]", result.Errors[0])
	assert.Equal(t, "step 0: expected state 3 at /a/x, got 2", result.Errors[1])
}

func TestRun_UnexpectedRejection(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected_rejection
description: writes below a primitive without expecting the error
initial: {n: 1}
steps:
  - op: set
    path: /n/k
    value: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"step 0: unexpected error NOT_CONTAINER"}, result.Errors)
	assert.Equal(t, "NOT_CONTAINER", result.Trace[0].Error)
}

func TestRun_MissingExpectedRejection(t *testing.T) {
	scenario := mustParse(t, `
name: missing_rejection
description: expects a rejection that does not happen
initial: {n: {}}
steps:
  - op: set
    path: /n/k
    value: 1
    expect:
      error: NOT_CONTAINER
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, []string{"step 0: expected error NOT_CONTAINER, write succeeded"}, result.Errors)
}

func TestRun_AutoVivifyFromUndefinedRoot(t *testing.T) {
	scenario := mustParse(t, `
name: vivify
description: writing a deep path into an empty lake creates the containers
watchers:
  - {name: root, path: /}
steps:
  - op: set
    path: /a/b/c
    value: 1
    expect:
      notified: [root]
assertions:
  - type: state_equals
    path: /
    value: {a: {b: {c: 1}}}
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, string(lake.WriteStructural), result.Trace[0].Kind)
	assert.Equal(t, []string{"/a/b/c", "/a/b", "/a", "/"}, result.Trace[0].Changed)
}

func TestRun_ApplyMergeRemovesNullKeys(t *testing.T) {
	scenario := mustParse(t, `
name: merge
description: merge adds and removes keys
initial: {cfg: {a: 1, b: 2}}
steps:
  - op: apply_merge
    path: /cfg
    value: {b: null, c: 3}
    expect:
      state: {a: 1, c: 3}
assertions:
  - type: keys
    path: /cfg
    keys: [a, c]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ForwardsToRecorder(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/id_regeneration.yaml")
	require.NoError(t, err)

	var events []lake.WriteEvent
	rec := lake.RecorderFunc(func(ev lake.WriteEvent) error {
		events = append(events, ev)
		return nil
	})

	result, err := Run(scenario, WithRecorder(rec))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, events, 2)
	assert.Equal(t, "id_regeneration", events[0].Lake)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Empty(t, events[1].RootDigest, "digests are off unless the recorder asks")
}

type digestCapture struct {
	events []lake.WriteEvent
}

func (c *digestCapture) Record(ev lake.WriteEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func (*digestCapture) RecordsRootDigest() bool { return true }

func TestRun_ForwardsRootDigestRequest(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/id_regeneration.yaml")
	require.NoError(t, err)

	rec := &digestCapture{}
	result, err := Run(scenario, WithRecorder(rec))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, rec.events, 2)
	assert.NotEmpty(t, rec.events[0].RootDigest)
	assert.Equal(t, result.RootDigest, rec.events[1].RootDigest)
}

func TestRun_WithMetrics(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/not_container.yaml")
	require.NoError(t, err)

	metrics, err := lake.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	result, err := Run(scenario, WithMetrics(metrics))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.WritesTotal.WithLabelValues(string(lake.WriteInPlace))))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.DetachedTotal))
}

func TestRun_DeterministicTraces(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/structural_add.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.RootDigest, second.RootDigest)
}

func TestRun_InitialStateError(t *testing.T) {
	scenario := mustParse(t, `
name: bad_cue
description: initial CUE is not concrete
initial_cue: "a: int"
steps:
  - op: delete
    path: /a
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load initial state")
}

func TestMergeObject(t *testing.T) {
	prev := value.MustFrom(map[string]any{"a": 1, "b": 2})
	patch := value.MustFrom(map[string]any{"b": nil, "c": 3}).(*value.Object)

	got := mergeObject(prev, patch)
	assert.True(t, value.Equal(value.MustFrom(map[string]any{"a": 1, "c": 3}), got), "got %s", value.Format(got))
	assert.False(t, value.Same(prev, got))
	assert.Equal(t, 2, prev.(*value.Object).Len(), "prev is not mutated")
}

func TestMergeObject_NonObjectPrevious(t *testing.T) {
	patch := value.MustFrom(map[string]any{"a": 1}).(*value.Object)

	got := mergeObject(value.Int(5), patch)
	assert.True(t, value.Equal(value.MustFrom(map[string]any{"a": 1}), got))
}
