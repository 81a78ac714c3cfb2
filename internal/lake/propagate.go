package lake

import (
	"github.com/roach88/statelake/internal/value"
)

// updateFunc computes the next state from the previous one.
type updateFunc func(prev value.Value) (value.Value, error)

// writeTx tracks one write while the lock is held.
type writeTx struct {
	op         string
	origin     *Branch
	generation int64

	kind     WriteKind
	changed  []*Branch         // branches whose state was applied, first-touch order
	seen     map[*Branch]bool  // dedup for changed
	detached int

	deliveries []delivery
	event      WriteEvent
}

type delivery struct {
	sub        *subscription
	generation int64
}

// Set replaces the branch state with v and returns the new state.
func (b *Branch) Set(v value.Value) (value.Value, error) {
	return b.lake.write(b, "set", func(value.Value) (value.Value, error) {
		return v, nil
	})
}

// Apply replaces the branch state with fn(prev). fn must be pure and must
// not call back into the lake. Returning prev unchanged is a no-op.
// If fn panics, nothing is mutated and the panic propagates.
func (b *Branch) Apply(fn func(prev value.Value) value.Value) (value.Value, error) {
	return b.lake.write(b, "apply", func(prev value.Value) (value.Value, error) {
		return fn(prev), nil
	})
}

// Update is like Apply for updaters that can fail. An error aborts the
// write before anything is mutated; the returned error wraps it.
func (b *Branch) Update(fn func(prev value.Value) (value.Value, error)) (value.Value, error) {
	return b.lake.write(b, "update", fn)
}

// Delete sets the branch state to null. The branch is detached from its
// parent once it has no observers left in its subtree.
func (b *Branch) Delete() error {
	_, err := b.lake.write(b, "delete", func(value.Value) (value.Value, error) {
		return value.Null{}, nil
	})
	return err
}

// write runs the propagation under the lock, then records the event and
// delivers notifications outside of it.
func (l *Lake) write(b *Branch, op string, fn updateFunc) (value.Value, error) {
	tx, next, err := l.apply(b, op, fn)
	if err != nil {
		l.metrics.writeRejected(err)
		l.logger.Debug("write rejected", "lake", l.name, "op", op, "path", value.FormatPath(b.path), "error", err)
		return next, err
	}

	if l.recorder != nil {
		if recErr := l.recorder.Record(tx.event); recErr != nil {
			l.logger.Warn("write event not recorded",
				"lake", l.name,
				"seq", tx.generation,
				"error", recErr,
			)
		}
	}
	l.metrics.writeApplied(tx)

	for _, d := range tx.deliveries {
		if d.sub.active.Load() {
			d.sub.fn(d.generation)
		}
	}
	return next, nil
}

func (l *Lake) apply(b *Branch, op string, fn updateFunc) (*writeTx, value.Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fn(b.state)
	if err != nil {
		return nil, b.state, newUpdaterError(op, b.path, err)
	}
	next = value.Normalize(next)

	if !value.Same(next, b.state) {
		if err := l.checkContainers(op, b, next); err != nil {
			return nil, b.state, err
		}
	}

	tx := &writeTx{
		op:         op,
		origin:     b,
		generation: l.clock.Next(),
		kind:       WriteNoop,
		seen:       make(map[*Branch]bool),
	}
	l.generation = tx.generation

	l.propagateDown(tx, b, next, false, false)

	if tx.kind == WriteNoop && len(tx.changed) > 0 {
		tx.kind = WriteLocal
	}
	for _, c := range tx.changed {
		for _, sub := range c.observers {
			tx.deliveries = append(tx.deliveries, delivery{sub: sub, generation: tx.generation})
		}
	}
	tx.event = l.buildEvent(tx)

	if len(tx.changed) > 0 {
		l.logger.Debug("write applied",
			"lake", l.name,
			"op", op,
			"path", value.FormatPath(b.path),
			"kind", tx.kind,
			"generation", tx.generation,
			"changed", len(tx.changed),
			"observers", len(tx.deliveries),
		)
	}
	return tx, b.state, nil
}

// checkContainers walks the ancestors a non-nullish write would extend and
// fails if one of them holds a value that cannot store the needed key.
// Nothing has been mutated when it returns an error.
func (l *Lake) checkContainers(op string, b *Branch, next value.Value) error {
	if value.IsNullish(next) {
		return nil
	}
	for c := b; ; {
		p := c.parent.Value()
		if p == nil {
			return nil
		}
		if value.IsNullish(p.state) {
			c = p
			continue
		}
		if !value.Accepts(p.state, c.key) {
			return newNotContainerError(op, p.path, c.key, p.state)
		}
		if value.HasKey(p.state, c.key) {
			return nil
		}
		c = p
	}
}

// propagateDown pushes next into b and reconciles its materialized children.
//
// forced applies next even when it is the same as the current state (the
// parent was rebuilt). fromParent suppresses the upward step because the
// parent is the one pushing the value.
func (l *Lake) propagateDown(tx *writeTx, b *Branch, next value.Value, forced, fromParent bool) {
	applied := forced || !value.Same(next, b.state)

	if applied {
		prev := b.state
		b.state = next
		if shapeChanged(prev, next) {
			b.id = l.ids.Generate()
		}
		tx.touch(b)

		if !fromParent {
			if p := b.parent.Value(); p != nil {
				l.propagateUp(tx, p, b)
			}
		}
	}

	if len(b.children) == 0 {
		return
	}

	if value.IsNullish(next) {
		if !applied {
			return
		}
		// Eagerly null every child so no observer reads a stale subtree.
		for _, key := range b.childKeys() {
			child := b.children[key]
			l.propagateDown(tx, child, value.Null{}, true, true)
			l.detachIfUnpinned(tx, b, child)
		}
		return
	}

	for _, key := range b.childKeys() {
		child := b.children[key]
		var cv value.Value = value.Null{}
		if value.HasKey(next, key) {
			cv = value.Lookup(next, key)
		}
		l.propagateDown(tx, child, cv, applied, true)
		if value.IsNullish(child.state) {
			l.detachIfUnpinned(tx, b, child)
		}
	}
}

// propagateUp reconciles p's state after its child c changed.
//
// A detached c whose slot now holds another branch hands its value to that
// branch, so the occupant and its observers see the write. A detached c
// with an empty slot is attached again.
func (l *Lake) propagateUp(tx *writeTx, p, c *Branch) {
	if occupant, ok := p.children[c.key]; ok && occupant != c {
		l.logger.Debug("stale branch write redirected",
			"lake", l.name,
			"path", value.FormatPath(c.path),
			"branch", occupant.id,
		)
		l.propagateDown(tx, occupant, c.state, false, false)
		return
	}

	hadKey := value.HasKey(p.state, c.key)

	if value.IsNullish(c.state) {
		if hadKey {
			tx.kind = WriteStructural
			l.propagateDown(tx, p, value.Without(p.state, c.key), true, false)
		}
		l.detachIfUnpinned(tx, p, c)
		return
	}

	if !hadKey {
		next, ok := value.With(p.state, c.key, c.state)
		if !ok {
			// checkContainers rejects these writes before anything is mutated.
			l.logger.Error("parent cannot hold child key",
				"lake", l.name,
				"path", value.FormatPath(p.path),
				"key", c.key,
				"kind", value.KindOf(p.state),
			)
			return
		}
		tx.kind = WriteStructural
		l.reattach(p, c)
		l.propagateDown(tx, p, next, true, false)
		return
	}

	l.reattach(p, c)
	value.SetInPlace(p.state, c.key, c.state)
	if tx.kind != WriteStructural {
		tx.kind = WriteInPlace
	}
}

func (l *Lake) reattach(p, c *Branch) {
	if _, present := p.children[c.key]; present {
		return
	}
	p.children[c.key] = c
	l.logger.Debug("branch reattached", "lake", l.name, "path", value.FormatPath(c.path))
}

// detachIfUnpinned drops c from p's children when c is nullish and nothing
// in its subtree is observed.
func (l *Lake) detachIfUnpinned(tx *writeTx, p, c *Branch) {
	if p.children[c.key] != c {
		return
	}
	if !value.IsNullish(c.state) || c.pinned() {
		return
	}
	delete(p.children, c.key)
	if tx != nil {
		tx.detached++
	}
	l.metrics.branchDetached()
	l.logger.Debug("branch detached", "lake", l.name, "path", value.FormatPath(c.path))
}

func (tx *writeTx) touch(b *Branch) {
	if tx.seen[b] {
		return
	}
	tx.seen[b] = true
	tx.changed = append(tx.changed, b)
}

// shape groups kinds whose replacement keeps a branch's identity.
type shape int

const (
	shapeNone shape = iota
	shapeScalar
	shapeArray
	shapeObject
)

func shapeOf(v value.Value) shape {
	switch value.KindOf(v) {
	case value.KindUndefined, value.KindNull:
		return shapeNone
	case value.KindArray:
		return shapeArray
	case value.KindObject:
		return shapeObject
	default:
		return shapeScalar
	}
}

// shapeChanged reports a replacement by a structurally different value.
// Transitions through a nullish value keep the identity.
func shapeChanged(prev, next value.Value) bool {
	a, b := shapeOf(prev), shapeOf(next)
	return a != shapeNone && b != shapeNone && a != b
}
