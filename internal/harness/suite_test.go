package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"cue_initial_merge.yaml",
		"delete_after_unsubscribe.yaml",
		"id_regeneration.yaml",
		"in_place_leaf_update.yaml",
		"not_container.yaml",
		"parent_drops_key.yaml",
		"structural_add.yaml",
	}, names)
}

func TestFindScenarios_Filter(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios", "*_add.yaml")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "structural_add.yaml", filepath.Base(paths[0]))
}

func TestFindScenarios_InvalidFilter(t *testing.T) {
	_, err := FindScenarios("testdata/scenarios", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestFindScenarios_MissingDir(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "missing"), "")
	require.Error(t, err)
}

func TestRunSuite_AllPass(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	res, err := RunSuite(context.Background(), paths, 3)
	require.NoError(t, err)

	assert.Equal(t, len(paths), res.Total)
	assert.Equal(t, len(paths), res.Passed)
	assert.Zero(t, res.Failed)
	for i, o := range res.Outcomes {
		assert.Equal(t, paths[i], o.Path, "outcomes keep input order")
		assert.True(t, o.Pass, "%s: %v", o.Path, o.Errors)
	}
}

func TestRunSuite_CountsFailures(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: broken\n"), 0644))

	failing := filepath.Join(dir, "failing.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(`
name: failing
description: asserts the wrong final value
initial: {a: 1}
steps:
  - op: set
    path: /a
    value: 2
assertions:
  - type: state_equals
    path: /a
    value: 1
`), 0644))

	res, err := RunSuite(context.Background(), []string{broken, failing}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Failed)
	assert.Contains(t, res.Outcomes[0].Errors[0], "description is required")
	assert.Equal(t, "failing", res.Outcomes[1].Name)
	assert.Contains(t, res.Outcomes[1].Errors[0], "Assertion failed: state_equals")
}

func TestRunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunSuite(ctx, []string{"testdata/scenarios/structural_add.yaml"}, 1)
	require.ErrorIs(t, err, context.Canceled)
}
