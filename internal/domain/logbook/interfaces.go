package logbook

import (
	"context"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
)

// Repository provides persistence for logbook entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, desc query.Descriptor) ([]Entry, error)
	// Update writes date, activity, time spent and attachments if the stored
	// version equals expectedVersion, and bumps it. A moved version yields
	// repository.ErrConflict.
	Update(ctx context.Context, e *Entry, expectedVersion int64) error
	// MarkValid sets valid. There is no way to clear it.
	MarkValid(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Projects is the slice of the project lifecycle the workflow relies on.
type Projects interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	ActiveFor(ctx context.Context, caller user.Identity) ([]project.Project, error)
}

// Attachments stores and releases entry files.
type Attachments interface {
	Save(ctx context.Context, files []attachment.File, policy attachment.Policy) ([]string, error)
	Release(ctx context.Context, handles ...string)
}

// ActivityRecorder appends to the project audit trail.
type ActivityRecorder = activity.Recorder
