package reaction

import (
	"context"

	"github.com/rpggio/teamwork/internal/query"
)

// Repository provides persistence for reactions.
type Repository interface {
	// Create stores r. A second like or bookmark by the same user on the same
	// project fails with repository.ErrDuplicate; a missing project with
	// repository.ErrForeignKeyViolation.
	Create(ctx context.Context, r *Reaction) error
	Get(ctx context.Context, id string) (*Reaction, error)
	Delete(ctx context.Context, id string) error
	// DeleteUnique removes the caller's like or bookmark and returns it.
	DeleteUnique(ctx context.Context, kind Kind, projectID, userID string) (*Reaction, error)
	List(ctx context.Context, desc query.Descriptor) ([]Reaction, error)
}

// ProjectOwners answers who chairs a project.
type ProjectOwners interface {
	ChairmanOf(ctx context.Context, projectID string) (string, error)
}

// Listener consumes reaction events synchronously.
type Listener interface {
	ReactionChanged(ctx context.Context, event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event)

// ReactionChanged calls f.
func (f ListenerFunc) ReactionChanged(ctx context.Context, event Event) {
	f(ctx, event)
}
