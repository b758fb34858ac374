package mcp_test

import (
	"context"
	"encoding/base64"
	"sort"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/teamwork/internal/app"
	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/mcp"
	"github.com/rpggio/teamwork/internal/sqlite"
	"github.com/rpggio/teamwork/internal/testserver"
)

var pngData = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))

func TestServer_ListsEveryTool(t *testing.T) {
	ts := testserver.New(t)
	_, key := ts.AddUser(t, "ada", user.RoleStudent, "s1")
	client := ts.Connect(t, key)

	res, err := client.Session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{
		"activate_project", "bookmark_project", "comment_project", "create_logbook", "create_project",
		"current_project", "delete_comment", "delete_logbook", "delete_logbook_attachments", "delete_project",
		"get_logbook", "get_project", "like_project", "list_comments", "list_logbooks", "list_my_reactions",
		"list_projects", "project_activity", "publish_project", "search", "unbookmark_project", "unlike_project",
		"update_logbook", "update_project", "upload_results", "validate_logbook", "whoami",
	}, names)
}

func TestServer_RequiresAPIKey(t *testing.T) {
	ts := testserver.New(t)
	ctx := context.Background()

	anonymous := ts.Connect(t, "")
	_, err := anonymous.Session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "whoami", Arguments: map[string]any{}})
	require.ErrorContains(t, err, "unauthorized")

	wrong := ts.Connect(t, "tw_not_a_key")
	_, err = wrong.Session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "whoami", Arguments: map[string]any{}})
	require.ErrorContains(t, err, "unauthorized")
}

func TestServer_WhoAmI(t *testing.T) {
	ts := testserver.New(t)
	ada, key := ts.AddUser(t, "ada", user.RoleStudent, "s1")
	client := ts.Connect(t, key)

	var me mcp.UserDTO
	client.Call(t, "whoami", nil, &me)
	require.Equal(t, ada.ID, me.ID)
	require.Equal(t, "ada@example.com", me.Email)
	require.Equal(t, "Ada Tester", me.FullName)
	require.Equal(t, "student", me.Role)
}

func TestServer_ErrorCodes(t *testing.T) {
	ts := testserver.New(t)
	_, studentKey := ts.AddUser(t, "ada", user.RoleStudent, "s1")
	_, mentorKey := ts.AddUser(t, "grace", user.RoleMentor, "s1")
	student := ts.Connect(t, studentKey)
	mentor := ts.Connect(t, mentorKey)

	msg := mentor.CallErr(t, "create_project", map[string]any{"name": "Robots", "topic": "cs"})
	require.Contains(t, msg, mcp.CodeForbidden)

	msg = student.CallErr(t, "create_project", map[string]any{"name": " ", "topic": "cs"})
	require.Contains(t, msg, mcp.CodeValidationFailed)

	msg = student.CallErr(t, "get_project", map[string]any{"id": "missing"})
	require.Contains(t, msg, mcp.CodeNotFound)

	msg = student.CallErr(t, "list_projects", map[string]any{"params": map[string]any{"colour": "red"}})
	require.Contains(t, msg, mcp.CodeMalformedQuery)

	var p mcp.ProjectDTO
	student.Call(t, "create_project", map[string]any{"name": "Robots", "topic": "cs"}, &p)
	msg = student.CallErr(t, "update_project", map[string]any{"id": p.ID, "name": "Drones", "version": p.Version + 1})
	require.Contains(t, msg, mcp.CodeConflict)

	msg = student.CallErr(t, "search", map[string]any{"target": "schools", "text": "x"})
	require.Contains(t, msg, mcp.CodeValidationFailed)
}

func TestServer_ListingProjection(t *testing.T) {
	ts := testserver.New(t)
	_, key := ts.AddUser(t, "ada", user.RoleStudent, "s1")
	client := ts.Connect(t, key)

	var p mcp.ProjectDTO
	client.Call(t, "create_project", map[string]any{"name": "Robots", "topic": "cs"}, &p)

	var out mcp.ListOutput
	client.Call(t, "list_projects", map[string]any{"params": map[string]any{"fields": "name"}}, &out)
	require.Equal(t, 1, out.Count)
	require.Equal(t, map[string]any{"id": p.ID, "name": "Robots"}, out.Items[0])

	client.Call(t, "list_projects", nil, &out)
	require.Equal(t, 1, out.Count)
	require.NotContains(t, out.Items[0], "version")
	require.Equal(t, true, out.Items[0]["active"])
}

func TestServer_SearchUsersHidesEmail(t *testing.T) {
	ts := testserver.New(t)
	_, key := ts.AddUser(t, "ada", user.RoleStudent, "s1")
	ts.AddUser(t, "grace", user.RoleMentor, "s1")
	client := ts.Connect(t, key)

	var out mcp.ListOutput
	client.Call(t, "search", map[string]any{"target": "users", "text": "GRA"}, &out)
	require.Equal(t, 1, out.Count)
	require.Equal(t, "grace", out.Items[0]["username"])
	require.NotContains(t, out.Items[0], "email")
}

func TestServer_ProjectDetailAndActivity(t *testing.T) {
	ts := testserver.New(t)
	_, adaKey := ts.AddUser(t, "ada", user.RoleStudent, "s1")
	_, bobKey := ts.AddUser(t, "bob", user.RoleStudent, "s1")
	ada := ts.Connect(t, adaKey)
	bob := ts.Connect(t, bobKey)

	var p mcp.ProjectDTO
	ada.Call(t, "create_project", map[string]any{"name": "Robots", "topic": "cs"}, &p)
	var entry mcp.LogbookDTO
	ada.Call(t, "create_logbook", map[string]any{
		"date":        "2026-03-02",
		"activity":    "wired the motors",
		"time":        90,
		"attachments": []map[string]any{{"name": "m.png", "content_type": "image/png", "data": pngData}},
	}, &entry)
	require.Equal(t, p.ID, entry.ProjectID)
	require.Len(t, entry.Attachments, 1)

	var detail mcp.ProjectDetail
	ada.Call(t, "get_project", map[string]any{"id": p.ID}, &detail)
	require.Len(t, detail.Logbooks, 1)

	var outsiderView mcp.ProjectDetail
	bob.Call(t, "get_project", map[string]any{"id": p.ID}, &outsiderView)
	require.Equal(t, p.ID, outsiderView.Project.ID)
	require.Empty(t, outsiderView.Logbooks)

	msg := bob.CallErr(t, "project_activity", map[string]any{"project_id": p.ID})
	require.Contains(t, msg, mcp.CodeForbidden)

	var trail struct {
		Count int               `json:"count"`
		Items []mcp.ActivityDTO `json:"items"`
	}
	ada.Call(t, "project_activity", map[string]any{"project_id": p.ID}, &trail)
	require.Equal(t, 2, trail.Count)
	require.Equal(t, "logbook_created", trail.Items[0].Type)
}

func TestServer_StdioRunsAsFixedUser(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })
	store, err := attachment.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	services := app.New(db, app.Options{Store: store})
	ada, err := services.Users.Register(ctx, user.RegisterRequest{
		FirstName: "Ada", LastName: "Lovelace", Username: "ada",
		Email: "ada@example.com", Role: user.RoleStudent, SchoolID: "s1",
	})
	require.NoError(t, err)

	connect := func(stdioUser string) *sdkmcp.ClientSession {
		server := mcp.NewServer(mcp.Config{
			Services: mcp.Services{
				Users:     services.Users,
				Projects:  services.Projects,
				Reactions: services.Reactions,
				Logbooks:  services.Logbooks,
				Activity:  services.Activity,
			},
			TransportMode: "stdio",
			StdioUser:     stdioUser,
		})
		serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
		serverSession, err := server.Connect(ctx, serverTransport, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = serverSession.Close() })

		client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "stdio-test", Version: "1.0.0"}, nil)
		session, err := client.Connect(ctx, clientTransport, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = session.Close() })
		return session
	}

	res, err := connect(ada.ID).CallTool(ctx, &sdkmcp.CallToolParams{Name: "whoami", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError, testserver.Text(res))
	require.Contains(t, testserver.Text(res), ada.ID)

	res, err = connect("").CallTool(ctx, &sdkmcp.CallToolParams{Name: "whoami", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, testserver.Text(res), mcp.CodeForbidden)
}
