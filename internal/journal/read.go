package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/statelake/internal/lake"
)

// ReadWrites returns the journaled writes of one lake, or of every lake when
// lakeName is empty, each with its notifications.
// Results are ordered by seq ASC, lake ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing was journaled.
func (s *Store) ReadWrites(ctx context.Context, lakeName string) ([]Write, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lake, seq, op, path, kind, notified, detached, root_digest
		FROM writes
		WHERE ? = '' OR lake = ?
		ORDER BY seq ASC, lake COLLATE BINARY ASC
	`, lakeName, lakeName)
	if err != nil {
		return nil, fmt.Errorf("query writes: %w", err)
	}

	writes := []Write{}
	for rows.Next() {
		w, err := scanWrite(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		writes = append(writes, w)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate writes: %w", err)
	}
	rows.Close()

	// Single connection: notifications are read after the writes cursor is closed.
	for i := range writes {
		changed, err := s.readNotifications(ctx, writes[i].Lake, writes[i].Seq)
		if err != nil {
			return nil, err
		}
		writes[i].Changed = changed
	}

	return writes, nil
}

// ReadWrite retrieves a single write by lake and seq.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadWrite(ctx context.Context, lakeName string, seq int64) (Write, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT lake, seq, op, path, kind, notified, detached, root_digest
		FROM writes
		WHERE lake = ? AND seq = ?
	`, lakeName, seq)

	w, err := scanWrite(row)
	if err != nil {
		return Write{}, err
	}

	w.Changed, err = s.readNotifications(ctx, lakeName, seq)
	if err != nil {
		return Write{}, err
	}
	return w, nil
}

// ReadBranchHistory returns the seqs of every write that applied state to
// the branch with the given id, in ascending order.
func (s *Store) ReadBranchHistory(ctx context.Context, branchID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq
		FROM notifications
		WHERE branch_id = ?
		ORDER BY seq ASC, lake COLLATE BINARY ASC
	`, branchID)
	if err != nil {
		return nil, fmt.Errorf("query branch history: %w", err)
	}
	defer rows.Close()

	seqs := []int64{}
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("scan branch history: %w", err)
		}
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branch history: %w", err)
	}
	return seqs, nil
}

// ListLakes returns the distinct lake names in the journal, sorted.
func (s *Store) ListLakes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT lake
		FROM writes
		ORDER BY lake COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query lakes: %w", err)
	}
	defer rows.Close()

	lakes := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan lake: %w", err)
		}
		lakes = append(lakes, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lakes: %w", err)
	}
	return lakes, nil
}

// GetLastSeq returns the highest seq journaled for a lake, or 0.
func (s *Store) GetLastSeq(ctx context.Context, lakeName string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM writes WHERE lake = ?
	`, lakeName).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func (s *Store) readNotifications(ctx context.Context, lakeName string, seq int64) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT branch_id, path, observers
		FROM notifications
		WHERE lake = ? AND seq = ?
		ORDER BY position ASC
	`, lakeName, seq)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.BranchID, &n.Path, &n.Observers); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWrite(row rowScanner) (Write, error) {
	var w Write
	var kind string
	err := row.Scan(&w.Lake, &w.Seq, &w.Op, &w.Path, &kind, &w.Notified, &w.Detached, &w.RootDigest)
	if err == sql.ErrNoRows {
		return Write{}, err
	}
	if err != nil {
		return Write{}, fmt.Errorf("scan write: %w", err)
	}
	w.Kind = lake.WriteKind(kind)
	w.Changed = []Notification{}
	return w, nil
}
