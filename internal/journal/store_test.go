package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statelake/internal/lake"
)

func TestOpen_CreatesJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_ReopenKeepsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, createTestWrite("l", 1, "/a", lake.WriteStructural, "/a", "/")))
	require.NoError(t, s.Close())

	for range 2 {
		s, err = Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	writes, err := s.ReadWrites(ctx, "l")
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Len(t, writes[0].Changed, 2)
}

func TestOpen_ConnectionPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			got, err := s.pragma(tt.pragma)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_Migrations(t *testing.T) {
	s := createTestStore(t)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	for _, index := range []string{"idx_writes_seq", "idx_notifications_branch", "idx_writes_lake_kind"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", index,
		).Scan(&name)
		assert.NoError(t, err, "index %s", index)
	}
}

// A journal written before the kind index existed is upgraded on open.
func TestOpen_UpgradesOlderJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_writes_lake_kind")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	var name string
	require.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_writes_lake_kind'",
	).Scan(&name))
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestOpenContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OpenContext(ctx, filepath.Join(t.TempDir(), "journal.db"))
	assert.Error(t, err)
}

func TestClose_ZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}
