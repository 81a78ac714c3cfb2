package lake

import (
	"github.com/roach88/statelake/internal/value"
)

// WriteKind classifies how far a write reached.
type WriteKind string

const (
	// WriteNoop: the new value was the same as the current one.
	WriteNoop WriteKind = "noop"

	// WriteLocal: the branch changed without touching ancestors (root
	// writes, detached branches, removing a key the parent never held).
	WriteLocal WriteKind = "local"

	// WriteInPlace: an existing key changed value; the nearest ancestor was
	// updated in place and not re-notified.
	WriteInPlace WriteKind = "in_place"

	// WriteStructural: a key appeared or disappeared; ancestors were rebuilt
	// and re-notified up to the first one that already held the key.
	WriteStructural WriteKind = "structural"
)

// ChangedBranch describes one branch whose state was applied by a write.
type ChangedBranch struct {
	ID        string   `json:"id"`
	Path      []string `json:"path"`
	Observers int      `json:"observers"`
}

// WriteEvent describes one completed write.
// Values are never included. RootDigest is a content hash of the root state,
// set only when root digests are enabled.
type WriteEvent struct {
	Lake       string          `json:"lake"`
	Seq        int64           `json:"seq"`
	Op         string          `json:"op"`
	Path       []string        `json:"path"`
	Kind       WriteKind       `json:"kind"`
	Changed    []ChangedBranch `json:"changed"`
	Detached   int             `json:"detached"`
	RootDigest string          `json:"root_digest,omitempty"`
}

// Notified returns the number of observer callbacks the write triggered.
func (ev WriteEvent) Notified() int {
	n := 0
	for _, c := range ev.Changed {
		n += c.Observers
	}
	return n
}

// Recorder receives one WriteEvent per completed write, outside the lake
// lock and before observers are notified. Errors are logged, never returned
// to the writer.
type Recorder interface {
	Record(ev WriteEvent) error
}

// RootDigester is implemented by recorders that need WriteEvent.RootDigest.
type RootDigester interface {
	RecordsRootDigest() bool
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ev WriteEvent) error

// Record calls f(ev).
func (f RecorderFunc) Record(ev WriteEvent) error {
	return f(ev)
}

// buildEvent snapshots the write while the lock is still held.
func (l *Lake) buildEvent(tx *writeTx) WriteEvent {
	ev := WriteEvent{
		Lake:     l.name,
		Seq:      tx.generation,
		Op:       tx.op,
		Path:     tx.origin.Path(),
		Kind:     tx.kind,
		Changed:  make([]ChangedBranch, 0, len(tx.changed)),
		Detached: tx.detached,
	}
	for _, c := range tx.changed {
		ev.Changed = append(ev.Changed, ChangedBranch{
			ID:        c.id,
			Path:      c.Path(),
			Observers: len(c.observers),
		})
	}
	if l.digests && l.recorder != nil {
		digest, err := value.Digest(l.root.state)
		if err != nil {
			l.logger.Debug("root digest unavailable", "lake", l.name, "error", err)
		}
		ev.RootDigest = digest
	}
	return ev
}
