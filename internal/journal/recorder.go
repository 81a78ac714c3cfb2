package journal

import (
	"context"

	"github.com/roach88/statelake/internal/lake"
)

// Recorder journals lake write events. It implements lake.Recorder.
//
// Usage:
//
//	rec := journal.NewRecorder(ctx, store)
//	l := lake.New(initial, lake.WithRecorder(rec))
type Recorder struct {
	ctx   context.Context
	store *Store
}

// NewRecorder creates a Recorder that appends to store using ctx for every
// insert. A cancelled ctx makes Record fail; the lake logs the failure and
// the write itself still succeeds.
func NewRecorder(ctx context.Context, store *Store) *Recorder {
	return &Recorder{ctx: ctx, store: store}
}

// Record appends ev to the journal.
func (r *Recorder) Record(ev lake.WriteEvent) error {
	return r.store.Append(r.ctx, FromEvent(ev))
}

// RecordsRootDigest asks the lake for root digests; inspect and trace
// compare them across runs.
func (r *Recorder) RecordsRootDigest() bool {
	return true
}

var (
	_ lake.Recorder     = (*Recorder)(nil)
	_ lake.RootDigester = (*Recorder)(nil)
)
