// Package journal provides SQLite-backed storage for lake write events.
//
// The journal is a diagnostics log. It records what each write did, never
// the state it wrote:
//   - Writes: one row per completed write (op, path, kind, root digest)
//   - Notifications: one row per branch whose state the write applied
//
// # Critical Patterns
//
// Logical time only:
//   - All ordering uses seq INTEGER (the lake generation), NEVER timestamps
//   - Two runs of the same scenario produce identical journals
//
// Idempotent writes:
//   - PRIMARY KEY(lake, seq) with ON CONFLICT DO NOTHING
//   - Re-recording an event is silently ignored
//
// Deterministic query results:
//   - All queries order by seq ASC, lake COLLATE BINARY ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
