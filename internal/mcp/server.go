package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/user"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, caller user.Identity, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context, caller user.Identity, params map[string]string) ([]project.Project, error)
	Search(ctx context.Context, text string, params map[string]string) ([]project.Project, error)
	Activate(ctx context.Context, caller user.Identity, id string) (*project.Project, error)
	Update(ctx context.Context, caller user.Identity, req project.UpdateRequest) (*project.Project, error)
	UploadResults(ctx context.Context, caller user.Identity, id string, files []attachment.File) (*project.Project, error)
	Publish(ctx context.Context, caller user.Identity, id string) (*project.Project, error)
	Delete(ctx context.Context, caller user.Identity, id string) error
}

// ReactionService defines reaction operations needed by MCP.
type ReactionService interface {
	Like(ctx context.Context, caller user.Identity, projectID string) (*reaction.Reaction, error)
	Unlike(ctx context.Context, caller user.Identity, projectID string) error
	Bookmark(ctx context.Context, caller user.Identity, projectID string) (*reaction.Reaction, error)
	Unbookmark(ctx context.Context, caller user.Identity, projectID string) error
	Comment(ctx context.Context, caller user.Identity, projectID, content string) (*reaction.Reaction, error)
	DeleteComment(ctx context.Context, caller user.Identity, commentID string) error
	ListMine(ctx context.Context, caller user.Identity, kind reaction.Kind, params map[string]string) ([]reaction.Reaction, error)
	ListComments(ctx context.Context, projectID string, params map[string]string) ([]reaction.Reaction, error)
}

// LogbookService defines logbook operations needed by MCP.
type LogbookService interface {
	ResolveCurrentProject(ctx context.Context, caller user.Identity) (*project.Project, error)
	Create(ctx context.Context, caller user.Identity, req logbook.CreateRequest) (*logbook.Entry, error)
	Get(ctx context.Context, id string) (*logbook.Entry, error)
	List(ctx context.Context, caller user.Identity, projectID string, params map[string]string) ([]logbook.Entry, error)
	Update(ctx context.Context, caller user.Identity, req logbook.UpdateRequest) (*logbook.Entry, error)
	Validate(ctx context.Context, caller user.Identity, id string) (*logbook.Entry, error)
	Delete(ctx context.Context, caller user.Identity, id string) error
	DeleteAttachments(ctx context.Context, caller user.Identity, id string, names []string) (*logbook.Entry, error)
}

// UserService defines user operations needed by MCP. It also resolves the
// caller identity.
type UserService interface {
	Get(ctx context.Context, id string) (*user.User, error)
	Search(ctx context.Context, text string, params map[string]string) ([]user.User, error)
	Resolve(ctx context.Context, token string) (user.Identity, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Users     UserService
	Projects  ProjectService
	Reactions ReactionService
	Logbooks  LogbookService
	Activity  ActivityService
}

// Config contains server configuration.
type Config struct {
	Services Services
	// AuthEnabled requires a bearer API key. It only applies to HTTP.
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// StdioUser is the user every request acts as when no key is required.
	StdioUser string
	Version   string
	Logger    *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "teamwork",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is a local, single-user transport: it always runs as StdioUser.
	if cfg.TransportMode == "http" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Services.Users))
	} else {
		server.AddReceivingMiddleware(fixedUserMiddleware(cfg.Services.Users, cfg.StdioUser))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
