package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

// Service handles user registration and identity resolution.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: shared.Logger(logger)}
}

// RegisterRequest defines registration inputs.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Role      Role
	SchoolID  string
}

// Register creates a user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.Username) == "" {
		return nil, shared.Detail(ErrInvalidInput, "first name and username are required")
	}
	if strings.TrimSpace(req.SchoolID) == "" {
		return nil, shared.Detail(ErrInvalidInput, "school is required")
	}
	if !req.Role.Valid() {
		return nil, shared.Detail(ErrInvalidInput, "unknown role %q", req.Role)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, shared.Detail(ErrInvalidInput, "invalid email %q", req.Email)
	}

	u := &User{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Username:  strings.ToLower(strings.TrimSpace(req.Username)),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      req.Role,
		SchoolID:  strings.TrimSpace(req.SchoolID),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role, "school_id", u.SchoolID)
	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrUserNotFound, "id %s", id)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Search lists users whose first or last name contains text, ignoring case.
func (s *Service) Search(ctx context.Context, text string, params map[string]string) ([]User, error) {
	desc, err := query.TranslateMap(params, Schema)
	if err != nil {
		return nil, err
	}
	if text = strings.TrimSpace(text); text != "" {
		desc.Filter = append(desc.Filter, query.Clause{Field: FullNameField, Op: query.OpContains, Value: text})
	}
	users, err := s.repo.List(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	return users, nil
}

// IssueAPIKey creates a new API key for the user. Only its hash is stored;
// the returned plaintext is not recoverable afterwards.
func (s *Service) IssueAPIKey(ctx context.Context, userID string) (string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return "", err
	}
	key := "tw_" + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.repo.StoreAPIKey(ctx, userID, HashAPIKey(key)); err != nil {
		return "", fmt.Errorf("storing api key: %w", err)
	}
	s.logger.Info("api key issued", "user_id", userID)
	return key, nil
}

// Resolve maps a bearer token to the caller identity.
func (s *Service) Resolve(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidAPIKey
	}
	u, err := s.repo.ResolveAPIKey(ctx, HashAPIKey(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Identity{}, ErrInvalidAPIKey
		}
		return Identity{}, fmt.Errorf("resolving api key: %w", err)
	}
	return u.Identity(), nil
}

// HashAPIKey returns the stored form of an API key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
