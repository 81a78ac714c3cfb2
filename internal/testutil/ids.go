package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable branch ids ("b1", "b2", ...).
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario run with a fresh SequentialIDs produces identical ids.
//
// Implements lake.IDGenerator.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequentialIDs creates a generator whose ids start with prefix.
// If prefix is empty, "b" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "b"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s%d", g.prefix, g.next)
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = 0
}
