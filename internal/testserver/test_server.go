// Package testserver runs the full stack behind an httptest server for
// end-to-end tests over the streamable HTTP transport.
package testserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/teamwork/internal/app"
	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/mcp"
	"github.com/rpggio/teamwork/internal/sqlite"
)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	App    *app.App
	Store  *attachment.DiskStore
}

// New starts a server with API key auth over a fresh in-memory database.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	store, err := attachment.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	services := app.New(db, app.Options{Store: store})
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Users:     services.Users,
			Projects:  services.Projects,
			Reactions: services.Reactions,
			Logbooks:  services.Logbooks,
			Activity:  services.Activity,
		},
		AuthEnabled:   true,
		TransportMode: "http",
	})
	handler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	)
	server := httptest.NewServer(handler)

	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, App: services, Store: store}
}

// AddUser registers a user and returns it with a fresh API key.
func (ts *TestServer) AddUser(t *testing.T, username string, role user.Role, school string) (*user.User, string) {
	t.Helper()
	ctx := context.Background()
	u, err := ts.App.Users.Register(ctx, user.RegisterRequest{
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Tester",
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		SchoolID:  school,
	})
	require.NoError(t, err)
	key, err := ts.App.Users.IssueAPIKey(ctx, u.ID)
	require.NoError(t, err)
	return u, key
}

// Connect opens a client session authenticated with key. An empty key
// connects without credentials.
func (ts *TestServer) Connect(t *testing.T, key string) *Client {
	t.Helper()
	httpClient := &http.Client{Transport: bearerTransport{key: key, base: http.DefaultTransport}}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "teamwork-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL,
		HTTPClient: httpClient,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return &Client{Session: session}
}

// Client wraps a session with JSON-decoding helpers.
type Client struct {
	Session *sdkmcp.ClientSession
}

// Call runs a tool that must succeed and decodes its structured output into out.
func (c *Client) Call(t *testing.T, name string, args map[string]any, out any) {
	t.Helper()
	res := c.raw(t, name, args)
	require.Falsef(t, res.IsError, "%s failed: %s", name, Text(res))
	if out == nil {
		return
	}
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

// CallErr runs a tool that must fail and returns the error text.
func (c *Client) CallErr(t *testing.T, name string, args map[string]any) string {
	t.Helper()
	res := c.raw(t, name, args)
	require.Truef(t, res.IsError, "%s unexpectedly succeeded: %s", name, Text(res))
	return Text(res)
}

func (c *Client) raw(t *testing.T, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.Session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

// Text joins the text content of a tool result.
func Text(res *sdkmcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

type bearerTransport struct {
	key  string
	base http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.key != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+b.key)
	}
	return b.base.RoundTrip(req)
}
