package project

import (
	"context"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
)

// Scope restricts a listing to the projects a caller may see. Zero fields
// are ignored; a zero Scope lists everything.
type Scope struct {
	// MemberID matches projects the user chairs or belongs to.
	MemberID string
	// TeacherID matches projects the user mentors.
	TeacherID string
	// PublishedOnly matches published projects regardless of membership.
	PublishedOnly bool
}

// Repository provides persistence for projects.
type Repository interface {
	// Create stores p. A second active project for the same chairman fails
	// with repository.ErrDuplicate.
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, scope Scope, desc query.Descriptor) ([]Project, error)
	// ActiveFor lists active projects the user chairs, belongs to (student)
	// or mentors (mentor).
	ActiveFor(ctx context.Context, userID string, role user.Role) ([]Project, error)
	// Activate makes projectID the chairman's only active project in one
	// transaction.
	Activate(ctx context.Context, chairmanID, projectID string) error
	// Update writes p if its stored version still equals expectedVersion,
	// else repository.ErrConflict. p.Version is bumped on success.
	Update(ctx context.Context, p *Project, expectedVersion int64) error
	// Delete removes the project with its logbook entries and reactions and
	// returns every attachment handle they referenced.
	Delete(ctx context.Context, id string) ([]string, error)
}

// MembershipPolicy gates member and teacher changes.
type MembershipPolicy interface {
	ValidateMembers(ctx context.Context, candidates []string, chairmanSchool string, existing []string) error
	ValidateTeacher(ctx context.Context, teacherID, chairmanSchool string) (*user.User, error)
}

// Attachments stores uploaded files and releases handles no longer referenced.
type Attachments interface {
	Save(ctx context.Context, files []attachment.File, policy attachment.Policy) ([]string, error)
	Release(ctx context.Context, handles ...string)
}

// ActivityRecorder appends to the project audit trail.
type ActivityRecorder = activity.Recorder
