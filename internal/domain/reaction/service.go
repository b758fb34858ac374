package reaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

// Service is the entry point for likes, bookmarks and comments.
type Service struct {
	repo   Repository
	owners ProjectOwners
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewService creates a new reaction service.
func NewService(repo Repository, owners ProjectOwners, logger *slog.Logger, listeners ...Listener) *Service {
	return &Service{repo: repo, owners: owners, logger: shared.Logger(logger), listeners: listeners}
}

// Subscribe registers a listener for reaction events.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Like records the caller's like on a project.
func (s *Service) Like(ctx context.Context, caller user.Identity, projectID string) (*Reaction, error) {
	return s.create(ctx, caller, KindLike, projectID, "")
}

// Unlike removes the caller's like.
func (s *Service) Unlike(ctx context.Context, caller user.Identity, projectID string) error {
	return s.removeUnique(ctx, caller, KindLike, projectID)
}

// Bookmark records the caller's bookmark on a project.
func (s *Service) Bookmark(ctx context.Context, caller user.Identity, projectID string) (*Reaction, error) {
	return s.create(ctx, caller, KindBookmark, projectID, "")
}

// Unbookmark removes the caller's bookmark.
func (s *Service) Unbookmark(ctx context.Context, caller user.Identity, projectID string) error {
	return s.removeUnique(ctx, caller, KindBookmark, projectID)
}

// Comment adds a comment. A user may comment any number of times.
func (s *Service) Comment(ctx context.Context, caller user.Identity, projectID, content string) (*Reaction, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.Detail(ErrInvalidInput, "comment content is required")
	}
	return s.create(ctx, caller, KindComment, projectID, content)
}

// DeleteComment removes a comment. The author and the project chairman may do so.
func (s *Service) DeleteComment(ctx context.Context, caller user.Identity, commentID string) error {
	r, err := s.repo.Get(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return shared.Detail(ErrReactionNotFound, "comment %s", commentID)
		}
		return fmt.Errorf("getting comment: %w", err)
	}
	if r.Kind != KindComment {
		return shared.Detail(ErrReactionNotFound, "comment %s", commentID)
	}

	if r.UserID != caller.UserID {
		chairman, err := s.owners.ChairmanOf(ctx, r.ProjectID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("getting project owner: %w", err)
		}
		if chairman != caller.UserID {
			return ErrNotCommentOwner
		}
	}

	if err := s.repo.Delete(ctx, r.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return shared.Detail(ErrReactionNotFound, "comment %s", commentID)
		}
		return fmt.Errorf("deleting comment: %w", err)
	}
	s.publish(ctx, Event{Type: EventDeleted, Kind: r.Kind, ProjectID: r.ProjectID, UserID: r.UserID, ReactionID: r.ID})
	return nil
}

// ListMine lists the caller's reactions of one kind.
func (s *Service) ListMine(ctx context.Context, caller user.Identity, kind Kind, params map[string]string) ([]Reaction, error) {
	if !kind.Valid() {
		return nil, shared.Detail(ErrInvalidInput, "unknown reaction kind %q", kind)
	}
	desc, err := query.TranslateMap(params, Schema)
	if err != nil {
		return nil, err
	}
	desc = desc.Where(
		query.Clause{Field: "user_id", Op: query.OpEq, Value: caller.UserID},
		query.Clause{Field: "kind", Op: query.OpEq, Value: string(kind)},
	)
	items, err := s.repo.List(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("listing reactions: %w", err)
	}
	return items, nil
}

// ListComments lists the comments on a project.
func (s *Service) ListComments(ctx context.Context, projectID string, params map[string]string) ([]Reaction, error) {
	desc, err := query.TranslateMap(params, Schema)
	if err != nil {
		return nil, err
	}
	desc = desc.Where(
		query.Clause{Field: "project_id", Op: query.OpEq, Value: projectID},
		query.Clause{Field: "kind", Op: query.OpEq, Value: string(KindComment)},
	)
	items, err := s.repo.List(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return items, nil
}

func (s *Service) create(ctx context.Context, caller user.Identity, kind Kind, projectID, content string) (*Reaction, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, shared.Detail(ErrInvalidInput, "project is required")
	}
	r := &Reaction{
		ID:        uuid.NewString(),
		Kind:      kind,
		ProjectID: projectID,
		UserID:    caller.UserID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, shared.Detail(ErrDuplicateReaction, "%s on %s", kind, projectID)
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, shared.Detail(ErrProjectNotFound, "id %s", projectID)
		}
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	s.publish(ctx, Event{Type: EventCreated, Kind: kind, ProjectID: projectID, UserID: caller.UserID, ReactionID: r.ID})
	return r, nil
}

func (s *Service) removeUnique(ctx context.Context, caller user.Identity, kind Kind, projectID string) error {
	r, err := s.repo.DeleteUnique(ctx, kind, projectID, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return shared.Detail(ErrReactionNotFound, "%s on %s", kind, projectID)
		}
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	s.publish(ctx, Event{Type: EventDeleted, Kind: kind, ProjectID: projectID, UserID: caller.UserID, ReactionID: r.ID})
	return nil
}

func (s *Service) publish(ctx context.Context, event Event) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()

	s.logger.Debug("reaction changed",
		"type", event.Type,
		"kind", event.Kind,
		"project_id", event.ProjectID,
	)
	for _, l := range listeners {
		l.ReactionChanged(ctx, event)
	}
}
