package lake

import (
	"slices"
	"sync"

	"github.com/roach88/statelake/internal/value"
)

// Watch registers fn to be called after every write that changes this
// branch. The returned function unsubscribes; calling it again is a no-op.
//
// Observers survive a transient nullish state: a branch that is emptied and
// repopulated keeps its subscribers.
func (b *Branch) Watch(fn Observer) (unsubscribe func()) {
	l := b.lake

	l.mu.Lock()
	l.subSeq++
	sub := &subscription{fn: fn, token: l.subSeq}
	sub.active.Store(true)
	b.observers = append(b.observers, sub)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.unsubscribe(b, sub)
		})
	}
}

// Subscribe registers a payload-free callback, the shape rendering adapters
// expect: on each call they read State again and re-render.
func (b *Branch) Subscribe(fn func()) (unsubscribe func()) {
	return b.Watch(func(int64) { fn() })
}

// unsubscribe removes sub. When the branch ends up observer-free and
// nullish it is detached, and so is every ancestor that becomes unpinned
// and nullish as a result.
func (l *Lake) unsubscribe(b *Branch, sub *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub.active.Store(false)
	b.observers = slices.DeleteFunc(b.observers, func(s *subscription) bool {
		return s == sub
	})
	l.logger.Debug("observer removed",
		"lake", l.name,
		"path", value.FormatPath(b.path),
		"token", sub.token,
		"remaining", len(b.observers),
	)

	for c := b; ; {
		p := c.parent.Value()
		if p == nil || p.children[c.key] != c {
			return
		}
		l.detachIfUnpinned(nil, p, c)
		if _, still := p.children[c.key]; still {
			return
		}
		c = p
	}
}
