package membership_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/teamwork/internal/domain/membership"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/repository"
	"github.com/rpggio/teamwork/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func student(id, school string) *user.User {
	return &user.User{ID: id, FirstName: id, Role: user.RoleStudent, SchoolID: school}
}

func TestValidateMembers_AcceptsSameSchoolStudents(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("Get", mock.Anything, "u1").Return(student("u1", "s1"), nil)
	users.On("Get", mock.Anything, "u2").Return(student("u2", "s1"), nil)

	policy := membership.NewPolicy(users, nil, 2)
	require.NoError(t, policy.ValidateMembers(context.Background(), []string{"u1", "u2", "u1"}, "s1", []string{"chair"}))
	users.AssertNumberOfCalls(t, "Get", 2)
}

func TestValidateMembers_FirstRejectionInCandidateOrder(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("Get", mock.Anything, "other").Return(student("other", "s2"), nil)
	users.On("Get", mock.Anything, "ghost").Return((*user.User)(nil), repository.ErrNotFound)
	users.On("Get", mock.Anything, "ok").Return(student("ok", "s1"), nil)

	policy := membership.NewPolicy(users, nil, 4)

	err := policy.ValidateMembers(context.Background(), []string{"ok", "other", "ghost"}, "s1", nil)
	require.ErrorIs(t, err, membership.ErrSchoolMismatch)
	require.ErrorIs(t, err, shared.ErrValidation)

	err = policy.ValidateMembers(context.Background(), []string{"ghost", "other"}, "s1", nil)
	require.ErrorIs(t, err, membership.ErrUnknownUser)
}

func TestValidateMembers_FailedLookupDoesNotBlockOthers(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("Get", mock.Anything, "broken").Return((*user.User)(nil), errors.New("db down"))
	users.On("Get", mock.Anything, "other").Return(student("other", "s2"), nil)

	policy := membership.NewPolicy(users, nil, 1)
	err := policy.ValidateMembers(context.Background(), []string{"broken", "other"}, "s1", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "db down")
	users.AssertCalled(t, "Get", mock.Anything, "other")
}

func TestValidateMembers_AlreadyMember(t *testing.T) {
	users := &mocks.UserRepository{}
	policy := membership.NewPolicy(users, nil, 0)

	err := policy.ValidateMembers(context.Background(), []string{"chair"}, "s1", []string{"chair", "m1"})
	require.ErrorIs(t, err, membership.ErrAlreadyMember)
	users.AssertNotCalled(t, "Get", mock.Anything, "chair")
}

func TestValidateMembers_RejectsMentors(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("Get", mock.Anything, "m").Return(&user.User{ID: "m", Role: user.RoleMentor, SchoolID: "s1"}, nil)

	err := membership.NewPolicy(users, nil, 0).ValidateMembers(context.Background(), []string{"m"}, "s1", nil)
	require.ErrorIs(t, err, membership.ErrNotStudent)
}

func TestValidateMembers_RejectsStudentsOnAnotherActiveProject(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("Get", mock.Anything, "busy").Return(student("busy", "s1"), nil)
	users.On("Get", mock.Anything, "free").Return(student("free", "s1"), nil)
	projects := &mocks.ProjectRepository{}
	projects.On("ActiveFor", mock.Anything, "busy", user.RoleStudent).Return([]project.Project{{ID: "p9", Name: "Volcano"}}, nil)
	projects.On("ActiveFor", mock.Anything, "free", user.RoleStudent).Return([]project.Project{}, nil)

	policy := membership.NewPolicy(users, projects, 2)
	require.NoError(t, policy.ValidateMembers(context.Background(), []string{"free"}, "s1", []string{"chair"}))

	err := policy.ValidateMembers(context.Background(), []string{"free", "busy"}, "s1", []string{"chair"})
	require.ErrorIs(t, err, membership.ErrOnActiveProject)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "Volcano")
}

func TestValidateTeacher(t *testing.T) {
	users := &mocks.UserRepository{}
	users.On("Get", mock.Anything, "t1").Return(&user.User{ID: "t1", Role: user.RoleMentor, SchoolID: "s1"}, nil)
	users.On("Get", mock.Anything, "t2").Return(&user.User{ID: "t2", Role: user.RoleMentor, SchoolID: "s2"}, nil)
	users.On("Get", mock.Anything, "st").Return(student("st", "s1"), nil)

	policy := membership.NewPolicy(users, nil, 0)
	ctx := context.Background()

	u, err := policy.ValidateTeacher(ctx, "t1", "s1")
	require.NoError(t, err)
	require.Equal(t, "t1", u.ID)

	_, err = policy.ValidateTeacher(ctx, "t2", "s1")
	require.ErrorIs(t, err, membership.ErrSchoolMismatch)

	_, err = policy.ValidateTeacher(ctx, "st", "s1")
	require.ErrorIs(t, err, membership.ErrNotMentor)
}
