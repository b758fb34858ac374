package logbook_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
	"github.com/rpggio/teamwork/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	chair    = user.Identity{UserID: "chair", Role: user.RoleStudent, SchoolID: "s1"}
	outsider = user.Identity{UserID: "x", Role: user.RoleStudent, SchoolID: "s1"}
	mentor   = user.Identity{UserID: "t1", Role: user.RoleMentor, SchoolID: "s1"}
	other    = user.Identity{UserID: "t2", Role: user.RoleMentor, SchoolID: "s1"}
)

type fixture struct {
	repo     *mocks.LogbookRepository
	projects *mocks.LogbookProjects
	files    *mocks.Attachments
	svc      *logbook.Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     &mocks.LogbookRepository{},
		projects: &mocks.LogbookProjects{},
		files:    &mocks.Attachments{},
	}
	recorder := &mocks.ActivityRecorder{}
	recorder.On("Record", mock.Anything, mock.Anything).Return()
	f.svc = logbook.NewService(f.repo, f.projects, f.files, recorder, nil)
	return f
}

func activeProject() project.Project {
	return project.Project{ID: "p1", ChairmanID: "chair", Members: []string{"m1"}, TeacherID: "t1", Active: true}
}

func pdf() []attachment.File {
	return []attachment.File{{Name: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}}
}

func TestResolveCurrentProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{activeProject()}, nil).Once()
	proj, err := f.svc.ResolveCurrentProject(ctx, chair)
	require.NoError(t, err)
	require.Equal(t, "p1", proj.ID)

	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{}, nil).Once()
	_, err = f.svc.ResolveCurrentProject(ctx, chair)
	require.ErrorIs(t, err, logbook.ErrNoActiveProject)
	require.ErrorIs(t, err, shared.ErrNotFound)

	second := activeProject()
	second.ID = "p2"
	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{activeProject(), second}, nil).Once()
	_, err = f.svc.ResolveCurrentProject(ctx, chair)
	require.ErrorIs(t, err, logbook.ErrAmbiguousActiveProject)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreate_UsesCurrentProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{activeProject()}, nil)
	f.files.On("Save", ctx, pdf(), attachment.LogbookPolicy).Return([]string{"h1.pdf"}, nil)
	f.repo.On("Create", ctx, mock.AnythingOfType("*logbook.Entry")).Return(nil)

	entry, err := f.svc.Create(ctx, chair, logbook.CreateRequest{
		Date:        "2024-03-01",
		Activity:    "soldering",
		TimeSpent:   90,
		Attachments: pdf(),
	})
	require.NoError(t, err)
	require.Equal(t, "p1", entry.ProjectID)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), entry.Date)
	require.Equal(t, []string{"h1.pdf"}, entry.Attachments)
	require.False(t, entry.Valid)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	cases := []logbook.CreateRequest{
		{Activity: "a", TimeSpent: 1, Attachments: pdf()},
		{Date: "yesterday", Activity: "a", TimeSpent: 1, Attachments: pdf()},
		{Date: "2024-01-01", TimeSpent: 1, Attachments: pdf()},
		{Date: "2024-01-01", Activity: "a", Attachments: pdf()},
	}
	for _, req := range cases {
		_, err := f.svc.Create(ctx, chair, req)
		require.ErrorIs(t, err, logbook.ErrInvalidInput)
	}

	_, err := f.svc.Create(ctx, chair, logbook.CreateRequest{Date: "2024-01-01", Activity: "a", TimeSpent: 1})
	require.ErrorIs(t, err, logbook.ErrNoAttachments)
}

func TestCreate_RequiresMembershipAndActiveProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inactive := activeProject()
	inactive.ID = "p9"
	inactive.Active = false
	p1 := activeProject()
	f.projects.On("Get", ctx, "p1").Return(&p1, nil)
	f.projects.On("Get", ctx, "p9").Return(&inactive, nil)

	req := logbook.CreateRequest{ProjectID: "p1", Date: "2024-01-01", Activity: "a", TimeSpent: 1, Attachments: pdf()}
	_, err := f.svc.Create(ctx, outsider, req)
	require.ErrorIs(t, err, logbook.ErrNotProjectMember)

	req.ProjectID = "p9"
	_, err = f.svc.Create(ctx, chair, req)
	require.ErrorIs(t, err, logbook.ErrProjectInactive)
	f.files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_AppendsAttachmentsAndChecksCurrentProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	entry := &logbook.Entry{ID: "e1", ProjectID: "p1", Activity: "a", TimeSpent: 10, Attachments: []string{"h1.pdf"}}
	f.repo.On("Get", ctx, "e1").Return(entry, nil)
	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{activeProject()}, nil)
	f.files.On("Save", ctx, pdf(), attachment.LogbookPolicy).Return([]string{"h2.pdf"}, nil)
	f.repo.On("Update", ctx, entry, int64(0)).Return(nil)

	minutes := 45
	updated, err := f.svc.Update(ctx, chair, logbook.UpdateRequest{ID: "e1", TimeSpent: &minutes, Attachments: pdf()})
	require.NoError(t, err)
	require.Equal(t, 45, updated.TimeSpent)
	require.Equal(t, []string{"h1.pdf", "h2.pdf"}, updated.Attachments)

	elsewhere := activeProject()
	elsewhere.ID = "p2"
	f.projects.On("ActiveFor", ctx, outsider).Return([]project.Project{elsewhere}, nil)
	_, err = f.svc.Update(ctx, outsider, logbook.UpdateRequest{ID: "e1"})
	require.ErrorIs(t, err, logbook.ErrNotCurrentProject)
}

func TestUpdate_TeacherCannotEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	entry := &logbook.Entry{ID: "e1", ProjectID: "p1", Activity: "a", TimeSpent: 10, Attachments: []string{"h1.pdf"}}
	f.repo.On("Get", ctx, "e1").Return(entry, nil)
	f.projects.On("ActiveFor", ctx, mentor).Return([]project.Project{activeProject()}, nil)

	rewritten := "rewritten by mentor"
	_, err := f.svc.Update(ctx, mentor, logbook.UpdateRequest{ID: "e1", Activity: &rewritten, Attachments: pdf()})
	require.ErrorIs(t, err, logbook.ErrNotProjectMember)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Equal(t, "a", entry.Activity)
	f.files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_ReloadsWhenVersionMoved(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	stale := &logbook.Entry{ID: "e1", ProjectID: "p1", Activity: "a", TimeSpent: 10, Attachments: []string{"a.pdf", "b.png"}, Version: 3}
	fresh := &logbook.Entry{ID: "e1", ProjectID: "p1", Activity: "a", TimeSpent: 10, Attachments: []string{"b.png"}, Version: 4}
	f.repo.On("Get", ctx, "e1").Return(stale, nil).Once()
	f.repo.On("Get", ctx, "e1").Return(fresh, nil).Once()
	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{activeProject()}, nil)
	f.files.On("Save", ctx, pdf(), attachment.LogbookPolicy).Return([]string{"c.pdf"}, nil)
	f.repo.On("Update", ctx, mock.Anything, int64(3)).Return(repository.ErrConflict).Once()
	f.repo.On("Update", ctx, mock.Anything, int64(4)).Return(nil).Once()

	updated, err := f.svc.Update(ctx, chair, logbook.UpdateRequest{ID: "e1", Attachments: pdf()})
	require.NoError(t, err)
	require.Equal(t, []string{"b.png", "c.pdf"}, updated.Attachments)
	f.files.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestUpdate_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("Get", ctx, "e1").Return(&logbook.Entry{ID: "e1", ProjectID: "p1", Activity: "a", TimeSpent: 10}, nil)
	f.projects.On("ActiveFor", ctx, chair).Return([]project.Project{activeProject()}, nil)
	f.files.On("Save", ctx, pdf(), attachment.LogbookPolicy).Return([]string{"c.pdf"}, nil)
	f.files.On("Release", ctx, []string{"c.pdf"}).Return()
	f.repo.On("Update", ctx, mock.Anything, mock.Anything).Return(repository.ErrConflict)

	_, err := f.svc.Update(ctx, chair, logbook.UpdateRequest{ID: "e1", Attachments: pdf()})
	require.ErrorIs(t, err, logbook.ErrEditConflict)
	require.ErrorIs(t, err, shared.ErrConflict)
	f.files.AssertExpectations(t)
}

func TestValidate_OnlyTeacherAndIrreversible(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	entry := &logbook.Entry{ID: "e1", ProjectID: "p1"}
	p1 := activeProject()
	f.repo.On("Get", ctx, "e1").Return(entry, nil)
	f.projects.On("Get", ctx, "p1").Return(&p1, nil)
	f.repo.On("MarkValid", ctx, "e1").Return(nil).Once()

	_, err := f.svc.Validate(ctx, other, "e1")
	require.ErrorIs(t, err, logbook.ErrNotTeacher)
	require.ErrorIs(t, err, shared.ErrForbidden)

	validated, err := f.svc.Validate(ctx, mentor, "e1")
	require.NoError(t, err)
	require.True(t, validated.Valid)

	again, err := f.svc.Validate(ctx, mentor, "e1")
	require.NoError(t, err)
	require.True(t, again.Valid)
	f.repo.AssertNumberOfCalls(t, "MarkValid", 1)
}

func TestDelete_ReleasesAttachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p1 := activeProject()
	f.repo.On("Get", ctx, "e1").Return(&logbook.Entry{ID: "e1", ProjectID: "p1", Attachments: []string{"a.pdf", "b.png"}}, nil)
	f.projects.On("Get", ctx, "p1").Return(&p1, nil)
	f.repo.On("Delete", ctx, "e1").Return(nil)
	f.files.On("Release", ctx, []string{"a.pdf", "b.png"}).Return()

	require.ErrorIs(t, f.svc.Delete(ctx, outsider, "e1"), logbook.ErrNotProjectMember)
	require.NoError(t, f.svc.Delete(ctx, chair, "e1"))
	f.files.AssertExpectations(t)
}

func TestDeleteAttachments_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p1 := activeProject()
	entry := &logbook.Entry{ID: "e1", ProjectID: "p1", Attachments: []string{"a.pdf", "b.png", "c.png"}}
	f.repo.On("Get", ctx, "e1").Return(entry, nil)
	f.projects.On("Get", ctx, "p1").Return(&p1, nil)

	_, err := f.svc.DeleteAttachments(ctx, chair, "e1", []string{"a.pdf", "zz.png", "yy.png"})
	require.ErrorIs(t, err, logbook.ErrAttachmentNotFound)
	require.Contains(t, err.Error(), "zz.png, yy.png")
	require.Len(t, entry.Attachments, 3)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)

	f.repo.On("Update", ctx, entry, int64(0)).Return(nil)
	f.files.On("Release", ctx, []string{"a.pdf", "c.png"}).Return()

	updated, err := f.svc.DeleteAttachments(ctx, chair, "e1", []string{"c.png", "a.pdf"})
	require.NoError(t, err)
	require.Equal(t, []string{"b.png"}, updated.Attachments)
	f.files.AssertExpectations(t)
}

func TestList_FiltersByProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.On("List", ctx, mock.MatchedBy(func(d query.Descriptor) bool {
		last := d.Filter[len(d.Filter)-1]
		return last.Field == "project_id" && last.Value == "p1" &&
			d.Filter[0] == query.Clause{Field: "time", Op: query.OpGte, Value: int64(5)}
	})).Return([]logbook.Entry{{ID: "e1"}}, nil)

	entries, err := f.svc.List(ctx, chair, "p1", map[string]string{"filter[time][gte]": "5"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
