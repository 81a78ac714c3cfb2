// Package lake implements the statelake branch synchronization protocol.
//
// A Lake owns a tree of lazily materialized branches. Each branch holds the
// slice of the shared state found at its path, a weak link to its parent,
// its observers, and the child branches that have been resolved so far.
//
// ARCHITECTURE:
//
// Single-Writer Propagation:
// Every write holds the lake's exclusive lock for the whole up/down
// propagation. Observers are collected while propagating and invoked after
// the lock is released, before the write returns. An observer therefore
// always reads a fully reconciled tree, and may itself read or write.
//
// Write Flow:
//  1. Compute next = updater(prev) or the literal value
//  2. Reject writes that would need a primitive ancestor to hold a key
//  3. propagateDown(origin): apply on identity change, notify, propagate up
//  4. propagateUp(parent): in-place store when the key already existed,
//     shallow-copy-and-rebuild when a key appears or disappears
//  5. Recurse into materialized children, nulling the ones whose key is gone
//  6. Record the write event, then deliver notifications
//
// CRITICAL PATTERNS:
//
// Identity, not equality:
// A write applies only when the new value is not value.Same as the current
// one. Callers signal change with new container references.
//
// Structural minimalism:
// Changing the value of an existing key never reallocates or re-notifies
// ancestors. Only adding or removing a key rebuilds the parent, and the
// rebuild stops at the first ancestor that already held the key.
//
// Generations:
// Each write takes one generation from the injected Sequencer. Every
// observer notified by that write receives the same generation.
package lake
