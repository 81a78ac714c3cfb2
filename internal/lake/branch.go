package lake

import (
	"slices"
	"sort"
	"sync/atomic"
	"weak"

	"github.com/roach88/statelake/internal/value"
)

// Observer is notified after a write changed its branch. It receives the
// write generation, never the value: observers read State themselves.
type Observer func(generation int64)

type subscription struct {
	fn     Observer
	token  uint64
	active atomic.Bool
}

// Branch is a node of the state tree owning the slice of state at its path.
//
// Key, Path and Parent are fixed at creation. Everything else is owned by
// the lake and guarded by its lock; callers go through the methods below.
type Branch struct {
	lake   *Lake
	parent weak.Pointer[Branch]
	key    string
	path   []string

	id        string
	state     value.Value
	children  map[string]*Branch
	observers []*subscription
}

func (l *Lake) newBranch(parent *Branch, key string, state value.Value) *Branch {
	b := &Branch{
		lake:     l,
		key:      key,
		path:     []string{},
		id:       l.ids.Generate(),
		state:    state,
		children: make(map[string]*Branch),
	}
	if parent != nil {
		b.parent = weak.Make(parent)
		b.path = append(slices.Clone(parent.path), key)
	}
	return b
}

// Lake returns the lake this branch belongs to.
func (b *Branch) Lake() *Lake {
	return b.lake
}

// Key returns the property name under which the parent stores this branch.
// The root's key is "".
func (b *Branch) Key() string {
	return b.key
}

// Path returns the keys from the root to this branch.
func (b *Branch) Path() []string {
	return slices.Clone(b.path)
}

// Parent returns the parent branch, or nil for the root (or for a branch
// whose detached parent has been garbage collected).
func (b *Branch) Parent() *Branch {
	return b.parent.Value()
}

// ID returns the branch identity. It changes only when the branch is
// recreated or its value is replaced by a structurally different kind.
func (b *Branch) ID() string {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	return b.id
}

// State returns the current value.
//
// Containers are shared with the lake and must be treated as read-only.
// Reading them while other goroutines write is safe, but consecutive reads
// may straddle a write; use View for a consistent read or Snapshot for a
// private copy.
func (b *Branch) State() value.Value {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	return b.state
}

// View calls fn with the current value while holding the lake's read lock,
// so no write lands until fn returns. fn must not write to the lake.
func (b *Branch) View(fn func(value.Value)) {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	fn(b.state)
}

// Snapshot returns a deep copy of the current value.
func (b *Branch) Snapshot() value.Value {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	return value.DeepCopy(b.state)
}

// Keys returns the enumerable keys of the state, or an empty slice when the
// state is not a container.
func (b *Branch) Keys() []string {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	return value.Keys(b.state)
}

// Child returns the materialized child under key without creating it.
func (b *Branch) Child(key string) (*Branch, bool) {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	c, ok := b.children[key]
	return c, ok
}

// Children returns the keys of materialized children in sorted order.
func (b *Branch) Children() []string {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	return b.childKeys()
}

func (b *Branch) childKeys() []string {
	keys := make([]string, 0, len(b.children))
	for k := range b.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ObserverCount returns the number of active observers.
func (b *Branch) ObserverCount() int {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	return len(b.observers)
}

// Attached reports whether the branch is reachable from the root.
func (b *Branch) Attached() bool {
	b.lake.mu.RLock()
	defer b.lake.mu.RUnlock()
	for c := b; ; {
		p := c.parent.Value()
		if p == nil {
			return c == b.lake.root
		}
		if p.children[c.key] != c {
			return false
		}
		c = p
	}
}

// Resolve returns the branch at path relative to b, materializing missing
// branches along the way. Resolving the same path twice returns the same
// branch as long as it has not been detached in between.
func (b *Branch) Resolve(path ...string) *Branch {
	l := b.lake

	l.mu.RLock()
	found := b.lookup(path)
	l.mu.RUnlock()
	if found != nil {
		return found
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolveLocked(b, path)
}

// lookup walks materialized children only.
func (b *Branch) lookup(path []string) *Branch {
	cur := b
	for _, seg := range path {
		next, ok := cur.children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func (l *Lake) resolveLocked(b *Branch, path []string) *Branch {
	if len(path) == 0 {
		return b
	}
	head, rest := path[0], path[1:]

	child, ok := b.children[head]
	if !ok {
		child = l.newBranch(b, head, value.Lookup(b.state, head))
		b.children[head] = child
		l.metrics.branchMaterialized()
	}
	return l.resolveLocked(child, rest)
}

// pinned reports whether b or any descendant has observers.
func (b *Branch) pinned() bool {
	if len(b.observers) > 0 {
		return true
	}
	for _, c := range b.children {
		if c.pinned() {
			return true
		}
	}
	return false
}
