package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const demoScenario = `
name: demo
description: adding a key notifies the rebuilt parent
initial: {a: {x: 1}}
watchers:
  - {name: a, path: /a}
steps:
  - op: set
    path: /a/y
    value: 2
    expect:
      notified: [a]
assertions:
  - type: keys
    path: /a
    keys: [x, y]
`

const failingScenario = `
name: bad
description: expects the wrong final value
initial: {a: 1}
steps:
  - op: set
    path: /a
    value: 2
assertions:
  - type: state_equals
    path: /a
    value: 1
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
// Logs and verbose output go to a separate buffer.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
