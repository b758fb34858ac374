package mocks

import (
	"context"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/stretchr/testify/mock"
)

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context, desc query.Descriptor) ([]user.User, error) {
	args := m.Called(ctx, desc)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) StoreAPIKey(ctx context.Context, userID, keyHash string) error {
	args := m.Called(ctx, userID, keyHash)
	return args.Error(0)
}

func (m *UserRepository) ResolveAPIKey(ctx context.Context, keyHash string) (*user.User, error) {
	args := m.Called(ctx, keyHash)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, scope project.Scope, desc query.Descriptor) ([]project.Project, error) {
	args := m.Called(ctx, scope, desc)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) ActiveFor(ctx context.Context, userID string, role user.Role) ([]project.Project, error) {
	args := m.Called(ctx, userID, role)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Activate(ctx context.Context, chairmanID, projectID string) error {
	args := m.Called(ctx, chairmanID, projectID)
	return args.Error(0)
}

func (m *ProjectRepository) Update(ctx context.Context, proj *project.Project, expectedVersion int64) error {
	args := m.Called(ctx, proj, expectedVersion)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if handles, ok := args.Get(0).([]string); ok {
		return handles, args.Error(1)
	}
	return nil, args.Error(1)
}

// MembershipPolicy is a mock for project.MembershipPolicy.
type MembershipPolicy struct {
	mock.Mock
}

func (m *MembershipPolicy) ValidateMembers(ctx context.Context, candidates []string, chairmanSchool string, existing []string) error {
	args := m.Called(ctx, candidates, chairmanSchool, existing)
	return args.Error(0)
}

func (m *MembershipPolicy) ValidateTeacher(ctx context.Context, teacherID, chairmanSchool string) (*user.User, error) {
	args := m.Called(ctx, teacherID, chairmanSchool)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// Attachments is a mock for the attachment facade used by services.
type Attachments struct {
	mock.Mock
}

func (m *Attachments) Save(ctx context.Context, files []attachment.File, policy attachment.Policy) ([]string, error) {
	args := m.Called(ctx, files, policy)
	if handles, ok := args.Get(0).([]string); ok {
		return handles, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Attachments) Release(ctx context.Context, handles ...string) {
	m.Called(ctx, handles)
}

// ActivityRecorder is a mock for activity.Recorder.
type ActivityRecorder struct {
	mock.Mock
}

func (m *ActivityRecorder) Record(ctx context.Context, entry *activity.ActivityEntry) {
	m.Called(ctx, entry)
}

// ReactionRepository is a mock for reaction.Repository.
type ReactionRepository struct {
	mock.Mock
}

func (m *ReactionRepository) Create(ctx context.Context, r *reaction.Reaction) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *ReactionRepository) Get(ctx context.Context, id string) (*reaction.Reaction, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*reaction.Reaction); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReactionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ReactionRepository) DeleteUnique(ctx context.Context, kind reaction.Kind, projectID, userID string) (*reaction.Reaction, error) {
	args := m.Called(ctx, kind, projectID, userID)
	if r, ok := args.Get(0).(*reaction.Reaction); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReactionRepository) List(ctx context.Context, desc query.Descriptor) ([]reaction.Reaction, error) {
	args := m.Called(ctx, desc)
	if list, ok := args.Get(0).([]reaction.Reaction); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProjectOwners is a mock for reaction.ProjectOwners.
type ProjectOwners struct {
	mock.Mock
}

func (m *ProjectOwners) ChairmanOf(ctx context.Context, projectID string) (string, error) {
	args := m.Called(ctx, projectID)
	return args.String(0), args.Error(1)
}

// EngagementCounter is a mock for engagement.Counter.
type EngagementCounter struct {
	mock.Mock
}

func (m *EngagementCounter) Recount(ctx context.Context, projectID string, kind reaction.Kind) (int, error) {
	args := m.Called(ctx, projectID, kind)
	return args.Int(0), args.Error(1)
}

func (m *EngagementCounter) ProjectIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// LogbookRepository is a mock for logbook.Repository.
type LogbookRepository struct {
	mock.Mock
}

func (m *LogbookRepository) Create(ctx context.Context, e *logbook.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *LogbookRepository) Get(ctx context.Context, id string) (*logbook.Entry, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*logbook.Entry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LogbookRepository) List(ctx context.Context, desc query.Descriptor) ([]logbook.Entry, error) {
	args := m.Called(ctx, desc)
	if list, ok := args.Get(0).([]logbook.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LogbookRepository) Update(ctx context.Context, e *logbook.Entry, expectedVersion int64) error {
	args := m.Called(ctx, e, expectedVersion)
	return args.Error(0)
}

func (m *LogbookRepository) MarkValid(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *LogbookRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// LogbookProjects is a mock for logbook.Projects.
type LogbookProjects struct {
	mock.Mock
}

func (m *LogbookProjects) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LogbookProjects) ActiveFor(ctx context.Context, caller user.Identity) ([]project.Project, error) {
	args := m.Called(ctx, caller)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
