package lake

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/statelake/internal/value"
)

// Lake is a hierarchical, path-addressable state container.
//
// Thread-safety model:
//   - Writes (Set, Apply, Update, Delete): exclusive lock for the whole propagation
//   - Reads (State, Keys, Snapshot, Child): shared lock
//   - Resolve: shared lock, upgraded when a branch must be materialized
//   - Observers: invoked after the lock is released, before the write returns
//
// INVARIANTS:
//   - parent.state[key] is value.Same as child.state after every write,
//     whenever the parent holds a container and the child is not nullish
//   - a branch with observers in its subtree is never detached
type Lake struct {
	mu   sync.RWMutex
	name string
	root *Branch

	clock    Sequencer
	ids      IDGenerator
	logger   *slog.Logger
	recorder Recorder
	digests  bool
	metrics  *Metrics

	generation int64  // generation of the last write (guarded by mu)
	subSeq     uint64 // subscription tokens (guarded by mu)
}

// Option configures a Lake.
type Option func(*Lake)

// WithClock sets the generation sequencer.
//
// Default: a fresh Clock starting at 0.
func WithClock(seq Sequencer) Option {
	return func(l *Lake) {
		l.clock = seq
	}
}

// WithIDGenerator sets the branch id generator.
//
// Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(l *Lake) {
		l.ids = ids
	}
}

// WithLogger sets the structured logger.
//
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lake) {
		l.logger = logger
	}
}

// WithRecorder attaches a Recorder that receives one WriteEvent per write.
// A recorder implementing RootDigester and returning true turns on root
// digests as WithRootDigests does.
func WithRecorder(r Recorder) Option {
	return func(l *Lake) {
		l.recorder = r
		if d, ok := r.(RootDigester); ok && d.RecordsRootDigest() {
			l.digests = true
		}
	}
}

// WithRootDigests fills WriteEvent.RootDigest for recorded writes.
//
// The digest hashes the whole canonical root while the write lock is held,
// so every write pays for the full tree. Default: off.
func WithRootDigests() Option {
	return func(l *Lake) {
		l.digests = true
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(l *Lake) {
		l.metrics = m
	}
}

// WithName sets the lake name used in logs and recorded events.
//
// Default: a UUIDv7.
func WithName(name string) Option {
	return func(l *Lake) {
		l.name = name
	}
}

// New creates a lake whose root branch holds initial.
func New(initial value.Value, opts ...Option) *Lake {
	l := &Lake{
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.name == "" {
		l.name = uuid.Must(uuid.NewV7()).String()
	}
	l.root = l.newBranch(nil, "", value.Normalize(initial))

	l.logger.Debug("lake created", "lake", l.name, "root_id", l.root.id)
	return l
}

// Name returns the lake name.
func (l *Lake) Name() string {
	return l.name
}

// Root returns the root branch.
func (l *Lake) Root() *Branch {
	return l.root
}

// Resolve is shorthand for l.Root().Resolve(path...).
func (l *Lake) Resolve(path ...string) *Branch {
	return l.root.Resolve(path...)
}

// State returns the root state.
func (l *Lake) State() value.Value {
	return l.root.State()
}

// View is shorthand for l.Root().View(fn).
func (l *Lake) View(fn func(value.Value)) {
	l.root.View(fn)
}

// Generation returns the generation of the most recent write, or 0.
func (l *Lake) Generation() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}
