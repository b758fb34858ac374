package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

var _ logbook.Repository = (*LogbookRepository)(nil)

var logbookColumns = columns{
	query.Sequence: "l.rowid",
	"id":           "l.id",
	"project_id":   "l.project_id",
	"author_id":    "l.author_id",
	"date":         "l.date",
	"activity":     "l.activity",
	"time":         "l.time_spent",
	"valid":        "l.valid",
	"created_at":   "l.created_at",
	"updated_at":   "l.updated_at",
}

const logbookSelect = `
	SELECT l.id, l.project_id, l.author_id, l.date, l.activity, l.time_spent,
		l.attachments, l.valid, l.version, l.created_at, l.updated_at
	FROM logbooks l`

// LogbookRepository implements logbook.Repository for SQLite
type LogbookRepository struct {
	db *DB
}

// NewLogbookRepository creates a new LogbookRepository
func NewLogbookRepository(db *DB) *LogbookRepository {
	return &LogbookRepository{db: db}
}

// Create inserts an entry.
func (r *LogbookRepository) Create(ctx context.Context, e *logbook.Entry) error {
	attachments, err := encodeList(e.Attachments)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO logbooks (
			id, project_id, author_id, date, activity, time_spent,
			attachments, valid, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.AuthorID, formatTime(e.Date), e.Activity, e.TimeSpent,
		attachments, boolInt(e.Valid), e.Version, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return mapWriteError("create logbook entry", err)
	}
	return nil
}

// Get retrieves an entry by ID
func (r *LogbookRepository) Get(ctx context.Context, id string) (*logbook.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, logbookSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get logbook entry: %w", err)
	}
	return e, nil
}

// List returns entries matching desc.
func (r *LogbookRepository) List(ctx context.Context, desc query.Descriptor) ([]logbook.Entry, error) {
	stmt, args, err := listSQL(logbookSelect, desc, logbookColumns, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list logbook entries: %w", err)
	}
	defer rows.Close()

	var entries []logbook.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan logbook entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logbook rows: %w", err)
	}
	return entries, nil
}

// Update writes the editable fields of e when the stored version matches.
func (r *LogbookRepository) Update(ctx context.Context, e *logbook.Entry, expectedVersion int64) error {
	attachments, err := encodeList(e.Attachments)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE logbooks
		SET date = ?, activity = ?, time_spent = ?, attachments = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		formatTime(e.Date), e.Activity, e.TimeSpent, attachments, formatTime(e.UpdatedAt),
		e.ID, expectedVersion,
	)
	if err != nil {
		return mapWriteError("update logbook entry", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM logbooks WHERE id = ?`, e.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check logbook entry: %w", err)
		}
		return repository.ErrConflict
	}

	e.Version = expectedVersion + 1
	return nil
}

// MarkValid sets the valid flag. A trigger refuses to clear it again.
func (r *LogbookRepository) MarkValid(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE logbooks SET valid = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to validate logbook entry: %w", err)
	}
	return requireRow(res)
}

// Delete removes an entry by ID
func (r *LogbookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logbooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete logbook entry: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanEntry(row rowScanner) (*logbook.Entry, error) {
	var (
		e                                   logbook.Entry
		valid                               int
		date, attachments, created, updated string
	)
	if err := row.Scan(
		&e.ID, &e.ProjectID, &e.AuthorID, &date, &e.Activity, &e.TimeSpent,
		&attachments, &valid, &e.Version, &created, &updated,
	); err != nil {
		return nil, err
	}
	e.Valid = valid == 1

	var err error
	if e.Attachments, err = decodeList(attachments); err != nil {
		return nil, err
	}
	if e.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &e, nil
}
