package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statelake/internal/journal"
)

// journaledDemo runs the demo scenario into a fresh journal and returns its path.
func journaledDemo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "demo.yaml", demoScenario)
	db := filepath.Join(dir, "lake.db")

	_, err := execute(t, "run", path, "--journal", db)
	require.NoError(t, err)
	return db
}

func TestTrace_MissingJournalFlag(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTrace_NonExistentJournal(t *testing.T) {
	out, err := execute(t, "trace", "--journal", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: journal not found")
}

func TestTrace_EmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := journal.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "trace", "--journal", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No writes recorded.")
}

func TestTrace_Text(t *testing.T) {
	db := journaledDemo(t)

	out, err := execute(t, "trace", "--journal", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Lake: demo")
	assert.Contains(t, out, "#1 set /a/y structural notified=1 detached=0")
	assert.Contains(t, out, "b3 observers=0")
	assert.Contains(t, out, "b2 observers=1")
	assert.Contains(t, out, "Stats: 1 write(s) in 1 lake(s), 1 notification(s), 0 detached")
}

func TestTrace_JSON(t *testing.T) {
	db := journaledDemo(t)

	out, err := execute(t, "--format", "json", "trace", "--journal", db, "--lake", "demo")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "demo", resp.Data.Lake)
	require.Len(t, resp.Data.Writes, 1)
	require.Len(t, resp.Data.Writes[0].Changed, 2)
	assert.Equal(t, "/a/y", resp.Data.Writes[0].Changed[0].Path)
	assert.Equal(t, "/a", resp.Data.Writes[0].Changed[1].Path)
	assert.Equal(t, 1, resp.Data.Stats.TotalWrites)
	assert.Equal(t, map[string]int{"structural": 1}, resp.Data.Stats.ByKind)
}

func TestTrace_UnknownLake(t *testing.T) {
	db := journaledDemo(t)

	out, err := execute(t, "trace", "--journal", db, "--lake", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "No writes recorded.")
}

func TestTrace_BranchFilter(t *testing.T) {
	db := journaledDemo(t)

	out, err := execute(t, "trace", "--journal", db, "--branch", "b2")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 set /a/y")

	out, err = execute(t, "trace", "--journal", db, "--branch", "b9")
	require.NoError(t, err)
	assert.Contains(t, out, "No writes recorded.")
}
