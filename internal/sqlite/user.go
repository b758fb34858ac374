package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

var _ user.Repository = (*UserRepository)(nil)

var userColumns = columns{
	query.Sequence:     "u.rowid",
	"id":               "u.id",
	"first_name":       "u.first_name",
	"last_name":        "u.last_name",
	"username":         "u.username",
	"role":             "u.role",
	"school_id":        "u.school_id",
	"created_at":       "u.created_at",
	user.FullNameField: "(u.first_name || ' ' || u.last_name)",
}

const userSelect = `SELECT u.id, u.first_name, u.last_name, u.username, u.email, u.role, u.school_id, u.created_at FROM users u`

// UserRepository implements user.Repository for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Username and email are unique.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, username, email, role, school_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Username, u.Email, string(u.Role), u.SchoolID, formatTime(u.CreatedAt),
	)
	if err != nil {
		return mapWriteError("create user", err)
	}
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns users matching desc.
func (r *UserRepository) List(ctx context.Context, desc query.Descriptor) ([]user.User, error) {
	stmt, args, err := listSQL(userSelect, desc, userColumns, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// StoreAPIKey records the hash of a key issued to userID.
func (r *UserRepository) StoreAPIKey(ctx context.Context, userID, keyHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, user_id, created_at) VALUES (?, ?, ?)`,
		keyHash, userID, formatTime(time.Now()),
	)
	if err != nil {
		return mapWriteError("store api key", err)
	}
	return nil
}

// ResolveAPIKey returns the owner of keyHash and stamps the key as used.
func (r *UserRepository) ResolveAPIKey(ctx context.Context, keyHash string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		userSelect+` JOIN api_keys k ON k.user_id = u.id WHERE k.key_hash = ?`, keyHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, formatTime(time.Now()), keyHash,
	); err != nil {
		return nil, fmt.Errorf("failed to touch api key: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u         user.User
		role      string
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &role, &u.SchoolID, &createdAt); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}
