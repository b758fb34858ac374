package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

var _ reaction.Repository = (*ReactionRepository)(nil)

var reactionColumns = columns{
	query.Sequence: "r.rowid",
	"id":           "r.id",
	"kind":         "r.kind",
	"project_id":   "r.project_id",
	"user_id":      "r.user_id",
	"content":      "r.content",
	"created_at":   "r.created_at",
}

const (
	reactionFields = `id, kind, project_id, user_id, content, created_at`
	reactionSelect = `SELECT r.id, r.kind, r.project_id, r.user_id, r.content, r.created_at FROM reactions r`
)

// ReactionRepository implements reaction.Repository for SQLite
type ReactionRepository struct {
	db *DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Create inserts a reaction. The partial unique index rejects a second like
// or bookmark by the same user.
func (r *ReactionRepository) Create(ctx context.Context, re *reaction.Reaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reactions (`+reactionFields+`) VALUES (?, ?, ?, ?, ?, ?)`,
		re.ID, string(re.Kind), re.ProjectID, re.UserID, re.Content, formatTime(re.CreatedAt),
	)
	if err != nil {
		return mapWriteError("create reaction", err)
	}
	return nil
}

// Get retrieves a reaction by ID
func (r *ReactionRepository) Get(ctx context.Context, id string) (*reaction.Reaction, error) {
	re, err := scanReaction(r.db.QueryRowContext(ctx, reactionSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reaction: %w", err)
	}
	return re, nil
}

// Delete removes a reaction by ID
func (r *ReactionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteUnique removes the user's like or bookmark on a project.
func (r *ReactionRepository) DeleteUnique(ctx context.Context, kind reaction.Kind, projectID, userID string) (*reaction.Reaction, error) {
	re, err := scanReaction(r.db.QueryRowContext(ctx,
		`DELETE FROM reactions WHERE kind = ? AND project_id = ? AND user_id = ? RETURNING `+reactionFields,
		string(kind), projectID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete reaction: %w", err)
	}
	return re, nil
}

// List returns reactions matching desc.
func (r *ReactionRepository) List(ctx context.Context, desc query.Descriptor) ([]reaction.Reaction, error) {
	stmt, args, err := listSQL(reactionSelect, desc, reactionColumns, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	defer rows.Close()

	var out []reaction.Reaction
	for rows.Next() {
		re, err := scanReaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		out = append(out, *re)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction rows: %w", err)
	}
	return out, nil
}

func scanReaction(row rowScanner) (*reaction.Reaction, error) {
	var (
		re        reaction.Reaction
		kind      string
		createdAt string
	)
	if err := row.Scan(&re.ID, &kind, &re.ProjectID, &re.UserID, &re.Content, &createdAt); err != nil {
		return nil, err
	}
	re.Kind = reaction.Kind(kind)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	re.CreatedAt = t
	return &re, nil
}
