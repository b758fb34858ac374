package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/teamwork/internal/attachment"
)

var _ attachment.Queue = (*CleanupQueue)(nil)

// CleanupQueue keeps released attachment handles in the blob_cleanup table
// until the janitor deletes them.
type CleanupQueue struct {
	db *DB
}

// NewCleanupQueue creates a new CleanupQueue
func NewCleanupQueue(db *DB) *CleanupQueue {
	return &CleanupQueue{db: db}
}

// Enqueue adds handles due at due. Handles already queued keep their schedule.
func (q *CleanupQueue) Enqueue(ctx context.Context, handles []string, due time.Time) error {
	if len(handles) == 0 {
		return nil
	}
	at := formatTime(due)
	return q.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, h := range handles {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO blob_cleanup (handle, attempts, due_at) VALUES (?, 0, ?)`, h, at,
			); err != nil {
				return fmt.Errorf("failed to enqueue %s: %w", h, err)
			}
		}
		return nil
	})
}

// Due returns up to limit handles whose time has come, oldest first.
func (q *CleanupQueue) Due(ctx context.Context, now time.Time, limit int) ([]attachment.Pending, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT handle, attempts FROM blob_cleanup WHERE due_at <= ? ORDER BY due_at, handle LIMIT ?`,
		formatTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due handles: %w", err)
	}
	defer rows.Close()

	var pending []attachment.Pending
	for rows.Next() {
		var p attachment.Pending
		if err := rows.Scan(&p.Handle, &p.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan pending handle: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// Retry reschedules handle after a failed delete.
func (q *CleanupQueue) Retry(ctx context.Context, handle string, attempts int, due time.Time) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE blob_cleanup SET attempts = ?, due_at = ? WHERE handle = ?`,
		attempts, formatTime(due), handle,
	); err != nil {
		return fmt.Errorf("failed to reschedule %s: %w", handle, err)
	}
	return nil
}

// Done forgets handle.
func (q *CleanupQueue) Done(ctx context.Context, handle string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM blob_cleanup WHERE handle = ?`, handle); err != nil {
		return fmt.Errorf("failed to drop %s: %w", handle, err)
	}
	return nil
}
