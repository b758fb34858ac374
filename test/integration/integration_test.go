package integration_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/teamwork/internal/app"
	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/membership"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/sqlite"
)

type testEnv struct {
	db    *sqlite.DB
	store *attachment.DiskStore
	app   *app.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	store, err := attachment.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &testEnv{db: db, store: store, app: app.New(db, app.Options{Store: store})}
}

func (e *testEnv) register(t *testing.T, username string, role user.Role, school string) user.Identity {
	t.Helper()
	u, err := e.app.Users.Register(context.Background(), user.RegisterRequest{
		FirstName: username,
		LastName:  "Tester",
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		SchoolID:  school,
	})
	require.NoError(t, err)
	return u.Identity()
}

func image(name string) attachment.File {
	return attachment.File{Name: name, ContentType: "image/png", Data: []byte("\x89PNG" + name)}
}

func TestIntegration_CounterConvergence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	chair := env.register(t, "chair", user.RoleStudent, "s1")
	proj, err := env.app.Projects.Create(ctx, chair, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)

	fans := make([]user.Identity, 8)
	for i := range fans {
		fans[i] = env.register(t, fmt.Sprintf("fan%d", i), user.RoleStudent, "s1")
	}

	var wg sync.WaitGroup
	for _, fan := range fans {
		wg.Add(1)
		go func(fan user.Identity) {
			defer wg.Done()
			_, _ = env.app.Reactions.Like(ctx, fan, proj.ID)
			_, _ = env.app.Reactions.Bookmark(ctx, fan, proj.ID)
			_, _ = env.app.Reactions.Comment(ctx, fan, proj.ID, "nice")
		}(fan)
	}
	wg.Wait()

	require.NoError(t, env.app.Reactions.Unlike(ctx, fans[0], proj.ID))
	require.NoError(t, env.app.Reactions.Unbookmark(ctx, fans[1], proj.ID))

	got, err := env.app.Projects.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.LikeCount)
	require.Equal(t, 7, got.BookmarkCount)
	require.Equal(t, 8, got.CommentCount)
}

func TestIntegration_SingleActiveProject(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.register(t, "sam", user.RoleStudent, "s1")

	// C predates A and is inactive.
	now := time.Now().UTC()
	c := &project.Project{
		ID: "project-c", Name: "Old", Topic: "history", ChairmanID: s.UserID,
		Members: []string{}, Results: []string{}, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, sqlite.NewProjectRepository(env.db).Create(ctx, c))

	a, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "A", Topic: "cs"})
	require.NoError(t, err)
	require.True(t, a.Active)

	_, err = env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "B", Topic: "cs"})
	require.ErrorIs(t, err, shared.ErrConflict)

	activated, err := env.app.Projects.Activate(ctx, s, c.ID)
	require.NoError(t, err)
	require.True(t, activated.Active)

	a, err = env.app.Projects.Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, a.Active)

	current, err := env.app.Logbooks.ResolveCurrentProject(ctx, s)
	require.NoError(t, err)
	require.Equal(t, c.ID, current.ID)
}

func TestIntegration_ReactionUniqueness(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	chair := env.register(t, "chair", user.RoleStudent, "s1")
	fan := env.register(t, "fan", user.RoleStudent, "s2")
	proj, err := env.app.Projects.Create(ctx, chair, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)

	_, err = env.app.Reactions.Like(ctx, fan, proj.ID)
	require.NoError(t, err)
	_, err = env.app.Reactions.Like(ctx, fan, proj.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	require.NoError(t, env.app.Reactions.Unlike(ctx, fan, proj.ID))
	_, err = env.app.Reactions.Like(ctx, fan, proj.ID)
	require.NoError(t, err)

	_, err = env.app.Reactions.Like(ctx, fan, "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIntegration_LogbookQueryTranslation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.register(t, "sam", user.RoleStudent, "s1")
	proj, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)

	for _, minutes := range []int{3, 5, 8} {
		_, err := env.app.Logbooks.Create(ctx, s, logbook.CreateRequest{
			Date:        "2026-03-02",
			Activity:    fmt.Sprintf("worked %d minutes", minutes),
			TimeSpent:   minutes,
			Attachments: []attachment.File{image(fmt.Sprintf("m%d.png", minutes))},
		})
		require.NoError(t, err)
	}

	entries, err := env.app.Logbooks.List(ctx, s, proj.ID, map[string]string{"filter[time][gte]": "5"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.GreaterOrEqual(t, e.TimeSpent, 5)
	}
	// Newest first without a sort.
	require.Equal(t, 8, entries[0].TimeSpent)
	require.Equal(t, 5, entries[1].TimeSpent)

	entries, err = env.app.Logbooks.List(ctx, s, "", map[string]string{"filter": "time < 5"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 3, entries[0].TimeSpent)

	_, err = env.app.Logbooks.List(ctx, s, "", map[string]string{"filter[minutes][gte]": "5"})
	require.ErrorIs(t, err, shared.ErrMalformedQuery)
}

func TestIntegration_PublishGating(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.register(t, "sam", user.RoleStudent, "s1")
	m := env.register(t, "mia", user.RoleMentor, "s1")
	proj, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)
	proj, err = env.app.Projects.Update(ctx, s, project.UpdateRequest{ID: proj.ID, TeacherID: &m.UserID})
	require.NoError(t, err)

	_, err = env.app.Projects.Publish(ctx, m, proj.ID)
	require.ErrorIs(t, err, project.ErrNotFinished)

	_, err = env.app.Projects.UploadResults(ctx, s, proj.ID, []attachment.File{image("result.png")})
	require.NoError(t, err)

	_, err = env.app.Projects.Publish(ctx, s, proj.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	published, err := env.app.Projects.Publish(ctx, m, proj.ID)
	require.NoError(t, err)
	require.True(t, published.Published)

	visible, err := env.app.Projects.List(ctx, env.register(t, "outsider", user.RoleStudent, "s9"), map[string]string{"published": "true"})
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestIntegration_ValidationIrreversibleAndTeacherOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.register(t, "sam", user.RoleStudent, "s1")
	teacher := env.register(t, "mia", user.RoleMentor, "s1")
	other := env.register(t, "max", user.RoleMentor, "s1")

	proj, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)
	_, err = env.app.Projects.Update(ctx, s, project.UpdateRequest{ID: proj.ID, TeacherID: &teacher.UserID})
	require.NoError(t, err)
	entry, err := env.app.Logbooks.Create(ctx, s, logbook.CreateRequest{
		Date: "2026-03-02", Activity: "soldering", TimeSpent: 30,
		Attachments: []attachment.File{image("board.png")},
	})
	require.NoError(t, err)

	_, err = env.app.Logbooks.Validate(ctx, other, entry.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	validated, err := env.app.Logbooks.Validate(ctx, teacher, entry.ID)
	require.NoError(t, err)
	require.True(t, validated.Valid)

	rewrite := "rewritten by mentor"
	_, err = env.app.Logbooks.Update(ctx, teacher, logbook.UpdateRequest{ID: entry.ID, Activity: &rewrite})
	require.ErrorIs(t, err, logbook.ErrNotProjectMember)

	activity := "re-soldering"
	updated, err := env.app.Logbooks.Update(ctx, s, logbook.UpdateRequest{ID: entry.ID, Activity: &activity})
	require.NoError(t, err)
	require.True(t, updated.Valid)

	_, err = env.db.ExecContext(ctx, `UPDATE logbooks SET valid = 0 WHERE id = ?`, entry.ID)
	require.Error(t, err)

	again, err := env.app.Logbooks.Validate(ctx, teacher, entry.ID)
	require.NoError(t, err)
	require.True(t, again.Valid)
}

// hookStore runs onPut once, before the first blob it stores.
type hookStore struct {
	attachment.Store
	onPut func()
}

func (h *hookStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if fn := h.onPut; fn != nil {
		h.onPut = nil
		fn()
	}
	return h.Store.Put(ctx, data, contentType)
}

func TestIntegration_ConcurrentAttachmentEditsKeepReleasedFilesOut(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	hooked := &hookStore{Store: env.store}
	env.app = app.New(env.db, app.Options{Store: hooked})
	s := env.register(t, "sam", user.RoleStudent, "s1")

	_, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)
	entry, err := env.app.Logbooks.Create(ctx, s, logbook.CreateRequest{
		Date: "2026-03-02", Activity: "wiring", TimeSpent: 10,
		Attachments: []attachment.File{image("a.png"), image("b.png")},
	})
	require.NoError(t, err)
	removed := entry.Attachments[0]

	// The removal commits while the update is storing its new file.
	hooked.onPut = func() {
		_, err := env.app.Logbooks.DeleteAttachments(ctx, s, entry.ID, []string{removed})
		require.NoError(t, err)
	}
	updated, err := env.app.Logbooks.Update(ctx, s, logbook.UpdateRequest{
		ID:          entry.ID,
		Attachments: []attachment.File{image("c.png")},
	})
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 2)
	require.NotContains(t, updated.Attachments, removed)

	stored, err := env.app.Logbooks.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, updated.Attachments, stored.Attachments)

	res, err := env.app.Janitor.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Deleted)
	for _, h := range stored.Attachments {
		path, err := env.store.Path(h)
		require.NoError(t, err)
		require.FileExists(t, path)
	}
}

func TestIntegration_DeleteCascadesAndReclaimsFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.register(t, "sam", user.RoleStudent, "s1")
	fan := env.register(t, "fan", user.RoleStudent, "s1")

	proj, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)
	entry, err := env.app.Logbooks.Create(ctx, s, logbook.CreateRequest{
		Date: "2026-03-02", Activity: "wiring", TimeSpent: 10,
		Attachments: []attachment.File{image("wires.png")},
	})
	require.NoError(t, err)
	proj, err = env.app.Projects.UploadResults(ctx, s, proj.ID, []attachment.File{image("final.png")})
	require.NoError(t, err)
	_, err = env.app.Reactions.Comment(ctx, fan, proj.ID, "great")
	require.NoError(t, err)

	handles := append(append([]string{}, entry.Attachments...), proj.Results...)
	for _, h := range handles {
		path, err := env.store.Path(h)
		require.NoError(t, err)
		require.FileExists(t, path)
	}

	require.NoError(t, env.app.Projects.Delete(ctx, s, proj.ID))

	_, err = env.app.Logbooks.Get(ctx, entry.ID)
	require.ErrorIs(t, err, logbook.ErrEntryNotFound)
	comments, err := env.app.Reactions.ListMine(ctx, fan, reaction.KindComment, nil)
	require.NoError(t, err)
	require.Empty(t, comments)

	res, err := env.app.Janitor.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, len(handles), res.Deleted)
	for _, h := range handles {
		path, err := env.store.Path(h)
		require.NoError(t, err)
		_, statErr := os.Stat(path)
		require.True(t, os.IsNotExist(statErr))
	}
}

func TestIntegration_MembersJoinAndLog(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.register(t, "sam", user.RoleStudent, "s1")
	mate := env.register(t, "kim", user.RoleStudent, "s1")
	stranger := env.register(t, "lee", user.RoleStudent, "s2")
	busy := env.register(t, "ana", user.RoleStudent, "s1")

	proj, err := env.app.Projects.Create(ctx, s, project.CreateRequest{Name: "Robots", Topic: "cs"})
	require.NoError(t, err)
	_, err = env.app.Projects.Create(ctx, busy, project.CreateRequest{Name: "Volcano", Topic: "geo"})
	require.NoError(t, err)

	_, err = env.app.Projects.Update(ctx, s, project.UpdateRequest{ID: proj.ID, Members: []string{busy.UserID}})
	require.ErrorIs(t, err, membership.ErrOnActiveProject)

	_, err = env.app.Projects.Update(ctx, s, project.UpdateRequest{ID: proj.ID, Members: []string{stranger.UserID}})
	require.ErrorIs(t, err, shared.ErrValidation)

	proj, err = env.app.Projects.Update(ctx, s, project.UpdateRequest{ID: proj.ID, Members: []string{mate.UserID}})
	require.NoError(t, err)
	require.Equal(t, []string{mate.UserID}, proj.Members)

	current, err := env.app.Logbooks.ResolveCurrentProject(ctx, mate)
	require.NoError(t, err)
	require.Equal(t, proj.ID, current.ID)

	_, err = env.app.Logbooks.Create(ctx, mate, logbook.CreateRequest{
		Date: "2026-03-03", Activity: "testing", TimeSpent: 15,
		Attachments: []attachment.File{{Name: "notes.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}},
	})
	require.NoError(t, err)

	_, err = env.app.Logbooks.Create(ctx, stranger, logbook.CreateRequest{
		ProjectID: proj.ID, Date: "2026-03-03", Activity: "sneaking", TimeSpent: 15,
		Attachments: []attachment.File{image("x.png")},
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}
