package journal

import (
	"path/filepath"
	"testing"

	"github.com/roach88/statelake/internal/lake"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestWrite creates a write with one notification per path.
func createTestWrite(lakeName string, seq int64, path string, kind lake.WriteKind, changed ...string) Write {
	w := Write{
		Lake:       lakeName,
		Seq:        seq,
		Op:         "set",
		Path:       path,
		Kind:       kind,
		RootDigest: "digest",
		Changed:    []Notification{},
	}
	for i, p := range changed {
		w.Changed = append(w.Changed, Notification{
			BranchID:  lakeName + "-" + p,
			Path:      p,
			Observers: i,
		})
		w.Notified += i
	}
	return w
}
