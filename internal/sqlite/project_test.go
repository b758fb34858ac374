package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	insertUser(t, db, "s2", user.RoleStudent, "school1")
	insertUser(t, db, "s3", user.RoleStudent, "school1")

	now := time.Now()
	proj := &project.Project{
		ID:         "p1",
		Name:       "Water",
		Topic:      "chemistry",
		ChairmanID: "s1",
		Members:    []string{"s3", "s2"},
		Active:     true,
		Results:    []string{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Create(ctx, proj))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Water", got.Name)
	require.Equal(t, []string{"s3", "s2"}, got.Members, "member order is kept")
	require.Empty(t, got.TeacherID)
	require.True(t, got.Active)
	require.Equal(t, int64(1), got.Version)
	require.WithinDuration(t, now, got.CreatedAt, time.Microsecond)
}

func TestProjectRepository_GetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_CreateSecondActive(t *testing.T) {
	db := NewTestDB(t)
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	insertProject(t, db, "p1", "s1", true)

	now := time.Now()
	err := NewProjectRepository(db).Create(context.Background(), &project.Project{
		ID: "p2", Name: "Second", Topic: "t", ChairmanID: "s1", Active: true,
		Version: 1, CreatedAt: now, UpdatedAt: now,
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestProjectRepository_ListScope(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	insertUser(t, db, "s2", user.RoleStudent, "school1")
	insertUser(t, db, "m1", user.RoleMentor, "school1")

	insertProject(t, db, "p1", "s1", true)
	p2 := insertProject(t, db, "p2", "s2", true)
	p2.Members = []string{"s1"}
	require.NoError(t, repo.Update(ctx, p2, p2.Version))
	p3 := insertProject(t, db, "p3", "s2", false)
	p3.Published = true
	p3.TeacherID = "m1"
	require.NoError(t, repo.Update(ctx, p3, p3.Version))

	ids := func(ps []project.Project) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := repo.List(ctx, project.Scope{}, query.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p2", "p1"}, ids(all), "newest first by default")

	mine, err := repo.List(ctx, project.Scope{MemberID: "s1"}, query.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p1"}, ids(mine))
	require.Equal(t, []string{"s1"}, mine[0].Members)

	mentored, err := repo.List(ctx, project.Scope{TeacherID: "m1"}, query.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"p3"}, ids(mentored))

	published, err := repo.List(ctx, project.Scope{PublishedOnly: true}, query.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"p3"}, ids(published))

	desc := query.Default().Where(query.Clause{Field: "name", Op: query.OpContains, Value: "P1"})
	found, err := repo.List(ctx, project.Scope{}, desc)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, ids(found))
}

func TestProjectRepository_ActiveFor(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	insertUser(t, db, "s2", user.RoleStudent, "school1")
	insertUser(t, db, "m1", user.RoleMentor, "school1")

	p1 := insertProject(t, db, "p1", "s1", true)
	p1.Members = []string{"s2"}
	p1.TeacherID = "m1"
	require.NoError(t, repo.Update(ctx, p1, p1.Version))
	insertProject(t, db, "p2", "s2", false)

	for _, tc := range []struct {
		userID string
		role   user.Role
		want   int
	}{
		{"s1", user.RoleStudent, 1},
		{"s2", user.RoleStudent, 1},
		{"m1", user.RoleMentor, 1},
		{"m1", user.RoleStudent, 0},
	} {
		got, err := repo.ActiveFor(ctx, tc.userID, tc.role)
		require.NoError(t, err)
		require.Len(t, got, tc.want, "%s as %s", tc.userID, tc.role)
	}
}

func TestProjectRepository_Activate(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	insertUser(t, db, "s2", user.RoleStudent, "school1")
	insertProject(t, db, "p1", "s1", true)
	insertProject(t, db, "p2", "s1", false)
	insertProject(t, db, "p3", "s2", true)

	require.NoError(t, repo.Activate(ctx, "s1", "p2"))

	p1, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.False(t, p1.Active)
	require.Equal(t, int64(2), p1.Version)

	p2, err := repo.Get(ctx, "p2")
	require.NoError(t, err)
	require.True(t, p2.Active)

	p3, err := repo.Get(ctx, "p3")
	require.NoError(t, err)
	require.True(t, p3.Active, "other chairmen are untouched")

	// Activating the already-active project is a no-op.
	require.NoError(t, repo.Activate(ctx, "s1", "p2"))

	require.ErrorIs(t, repo.Activate(ctx, "s1", "p3"), repository.ErrNotFound)
	require.ErrorIs(t, repo.Activate(ctx, "s1", "nope"), repository.ErrNotFound)
}

func TestProjectRepository_UpdateVersion(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	p := insertProject(t, db, "p1", "s1", true)

	p.Name = "Renamed"
	p.Results = []string{"a.png"}
	require.NoError(t, repo.Update(ctx, p, 1))
	require.Equal(t, int64(2), p.Version)

	stale := *p
	stale.Name = "Stale"
	require.ErrorIs(t, repo.Update(ctx, &stale, 1), repository.ErrConflict)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Equal(t, []string{"a.png"}, got.Results)

	missing := *p
	missing.ID = "nope"
	require.ErrorIs(t, repo.Update(ctx, &missing, 2), repository.ErrNotFound)
}

func TestProjectRepository_DeleteCollectsHandles(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	p := insertProject(t, db, "p1", "s1", true)
	p.Results = []string{"r1.png"}
	require.NoError(t, repo.Update(ctx, p, p.Version))

	insertEntry(t, db, "l1", "p1", "s1", "a.pdf", "b.png")
	require.NoError(t, NewReactionRepository(db).Create(ctx, &reaction.Reaction{
		ID: "x1", Kind: reaction.KindLike, ProjectID: "p1", UserID: "s1", CreatedAt: time.Now(),
	}))

	handles, err := repo.Delete(ctx, "p1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"r1.png", "a.pdf", "b.png"}, handles)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM reactions`).Scan(&n))
	require.Zero(t, n, "reactions cascade")
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM logbooks`).Scan(&n))
	require.Zero(t, n)

	_, err = repo.Delete(ctx, "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_Recount(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	reactions := NewReactionRepository(db)
	ctx := context.Background()
	insertUser(t, db, "s1", user.RoleStudent, "school1")
	insertUser(t, db, "s2", user.RoleStudent, "school1")
	insertProject(t, db, "p1", "s1", true)

	for i, uid := range []string{"s1", "s2"} {
		require.NoError(t, reactions.Create(ctx, &reaction.Reaction{
			ID: "like" + uid, Kind: reaction.KindLike, ProjectID: "p1", UserID: uid, CreatedAt: time.Now(),
		}))
		n, err := repo.Recount(ctx, "p1", reaction.KindLike)
		require.NoError(t, err)
		require.Equal(t, i+1, n)
	}

	n, err := repo.Recount(ctx, "p1", reaction.KindComment)
	require.NoError(t, err)
	require.Zero(t, n)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 2, got.LikeCount)
	require.Equal(t, int64(1), got.Version, "counters don't bump the version")

	_, err = repo.Recount(ctx, "nope", reaction.KindLike)
	require.ErrorIs(t, err, repository.ErrNotFound)

	ids, err := repo.ProjectIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, ids)

	chairman, err := repo.ChairmanOf(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "s1", chairman)
}
