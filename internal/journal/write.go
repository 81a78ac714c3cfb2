package journal

import (
	"context"
	"fmt"
)

// Append inserts a write and its notifications in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - a (lake, seq) pair that is
// already journaled is silently ignored, notifications included.
func (s *Store) Append(ctx context.Context, w Write) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append write: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO writes
		(lake, seq, op, path, kind, notified, detached, root_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(lake, seq) DO NOTHING
	`,
		w.Lake,
		w.Seq,
		w.Op,
		w.Path,
		string(w.Kind),
		w.Notified,
		w.Detached,
		w.RootDigest,
	)
	if err != nil {
		return fmt.Errorf("append write: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append write: rows affected: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for i, n := range w.Changed {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications
			(lake, seq, position, branch_id, path, observers)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			w.Lake,
			w.Seq,
			i,
			n.BranchID,
			n.Path,
			n.Observers,
		)
		if err != nil {
			return fmt.Errorf("write notification %s: %w", n.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append write: commit: %w", err)
	}
	return nil
}
