package journal

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statelake/internal/lake"
	"github.com/roach88/statelake/internal/testutil"
	"github.com/roach88/statelake/internal/value"
)

func newJournaledLake(t *testing.T, s *Store, initial any) *lake.Lake {
	t.Helper()
	return lake.New(value.MustFrom(initial),
		lake.WithName("journaled"),
		lake.WithClock(testutil.NewDeterministicClock()),
		lake.WithIDGenerator(testutil.NewSequentialIDs("b")),
		lake.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		lake.WithRecorder(NewRecorder(context.Background(), s)),
	)
}

func TestRecorder_JournalsLakeWrites(t *testing.T) {
	s := createTestStore(t)
	l := newJournaledLake(t, s, map[string]any{"a": map[string]any{"x": 1}})

	x := l.Resolve("a", "x")
	unsub := x.Subscribe(func() {})
	defer unsub()

	_, err := x.Set(value.Int(2))
	require.NoError(t, err)
	_, err = l.Resolve("a", "y").Set(value.Int(5))
	require.NoError(t, err)

	writes, err := s.ReadWrites(context.Background(), "journaled")
	require.NoError(t, err)
	require.Len(t, writes, 2)

	assert.Equal(t, int64(1), writes[0].Seq)
	assert.Equal(t, "/a/x", writes[0].Path)
	assert.Equal(t, lake.WriteInPlace, writes[0].Kind)
	assert.Equal(t, 1, writes[0].Notified)
	assert.Equal(t, []Notification{{BranchID: x.ID(), Path: "/a/x", Observers: 1}}, writes[0].Changed)

	assert.Equal(t, lake.WriteStructural, writes[1].Kind)
	assert.Equal(t, value.MustDigest(l.State()), writes[1].RootDigest)

	history, err := s.ReadBranchHistory(context.Background(), x.ID())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, history, "x is re-notified when a is rebuilt")
}

func TestRecorder_FailureDoesNotFailWrite(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := lake.New(value.MustFrom(map[string]any{"a": 1}),
		lake.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		lake.WithRecorder(NewRecorder(ctx, s)),
	)

	_, err := l.Resolve("a").Set(value.Int(2))
	require.NoError(t, err)

	writes, err := s.ReadWrites(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestFromEvent(t *testing.T) {
	ev := lake.WriteEvent{
		Lake: "l",
		Seq:  3,
		Op:   "delete",
		Path: []string{"a", "b/c"},
		Kind: lake.WriteStructural,
		Changed: []lake.ChangedBranch{
			{ID: "b2", Path: []string{"a", "b/c"}, Observers: 2},
			{ID: "b1", Path: []string{}, Observers: 1},
		},
		Detached:   1,
		RootDigest: "abc",
	}

	w := FromEvent(ev)
	assert.Equal(t, "/a/b~1c", w.Path)
	assert.Equal(t, 3, w.Notified)
	assert.Equal(t, 1, w.Detached)
	assert.Equal(t, "/", w.Changed[1].Path)
}
