package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
)

// projectLogbookLimit caps the entries embedded in get_project.
const projectLogbookLimit = "100"

var (
	errNotOnProject  = shared.New("mcp", shared.ErrForbidden, "caller is neither a member nor the teacher of the project")
	errUnknownTarget = shared.New("mcp", shared.ErrValidation, "search target must be projects or users")
)

type noInput struct{}

type idInput struct {
	ID string `json:"id" jsonschema:"entity id"`
}

type projectRefInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
}

type listInput struct {
	Params map[string]string `json:"params,omitempty" jsonschema:"listing parameters: filter[field][op], sort, fields, page, limit (see teamwork://docs/query)"`
}

// ListOutput is the shape of every listing.
type ListOutput struct {
	Count int              `json:"count"`
	Items []map[string]any `json:"items"`
}

type okOutput struct {
	OK bool `json:"ok"`
}

// toolFunc is a tool body that runs with a resolved caller.
type toolFunc[In, Out any] func(ctx context.Context, caller user.Identity, in In) (Out, error)

// withCaller adapts fn to the SDK handler signature. Every failure is mapped
// to an APIError, which the SDK reports as a tool error.
func withCaller[In, Out any](fn toolFunc[In, Out]) sdkmcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		var zero Out
		caller, err := callerFrom(ctx)
		if err != nil {
			return nil, zero, MapError(err)
		}
		out, err := fn(ctx, caller, in)
		if err != nil {
			return nil, zero, MapError(err)
		}
		return nil, out, nil
	}
}

// listing applies the projection requested in params to items.
func listing[D any](items []D, params map[string]string, schema query.Schema) (ListOutput, error) {
	desc, err := query.TranslateMap(params, schema)
	if err != nil {
		return ListOutput{}, err
	}
	rows, err := desc.Select(items)
	if err != nil {
		return ListOutput{}, err
	}
	return ListOutput{Count: len(rows), Items: rows}, nil
}

func registerTools(server *sdkmcp.Server, svc Services) {
	registerUserTools(server, svc)
	registerProjectTools(server, svc)
	registerReactionTools(server, svc)
	registerLogbookTools(server, svc)
}

type searchInput struct {
	Target string            `json:"target,omitempty" jsonschema:"projects (default) or users"`
	Text   string            `json:"text" jsonschema:"case-insensitive substring of the project name or the user's full name"`
	Params map[string]string `json:"params,omitempty" jsonschema:"listing parameters"`
}

func registerUserTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "whoami",
		Description: "Show the calling user",
	}, withCaller(func(ctx context.Context, caller user.Identity, _ noInput) (UserDTO, error) {
		u, err := svc.Users.Get(ctx, caller.UserID)
		if err != nil {
			return UserDTO{}, err
		}
		return toUserDTO(u, true), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search",
		Description: "Search projects by name or users by name",
	}, withCaller(func(ctx context.Context, _ user.Identity, in searchInput) (ListOutput, error) {
		switch strings.ToLower(strings.TrimSpace(in.Target)) {
		case "", "projects":
			projects, err := svc.Projects.Search(ctx, in.Text, in.Params)
			if err != nil {
				return ListOutput{}, err
			}
			return listing(mapSlice(projects, toProjectDTO), in.Params, project.Schema)
		case "users":
			users, err := svc.Users.Search(ctx, in.Text, in.Params)
			if err != nil {
				return ListOutput{}, err
			}
			dtos := mapSlice(users, func(u *user.User) UserDTO { return toUserDTO(u, false) })
			return listing(dtos, in.Params, user.Schema)
		default:
			return ListOutput{}, shared.Detail(errUnknownTarget, "got %q", in.Target)
		}
	}))
}

type createProjectInput struct {
	Name        string `json:"name" jsonschema:"project name"`
	Topic       string `json:"topic" jsonschema:"project topic"`
	Description string `json:"description,omitempty" jsonschema:"free text description"`
}

type updateProjectInput struct {
	ID          string   `json:"id" jsonschema:"project id"`
	Name        *string  `json:"name,omitempty"`
	Topic       *string  `json:"topic,omitempty"`
	Description *string  `json:"description,omitempty"`
	TeacherID   *string  `json:"teacher_id,omitempty" jsonschema:"mentor of the same school"`
	Members     []string `json:"members,omitempty" jsonschema:"student ids to add to the team"`
	Version     *int64   `json:"version,omitempty" jsonschema:"expected version; the update fails with CONFLICT if the project changed"`
}

type uploadResultsInput struct {
	ID    string      `json:"id" jsonschema:"project id"`
	Files []FileInput `json:"files" jsonschema:"result images; replace any previous results"`
}

// ProjectDetail is a project with its logbook, shown to its team and teacher.
type ProjectDetail struct {
	Project  ProjectDTO   `json:"project"`
	Logbooks []LogbookDTO `json:"logbooks,omitempty"`
}

type projectActivityInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
	Type      string `json:"type,omitempty" jsonschema:"only entries of this activity type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum entries, default 50"`
	Offset    int    `json:"offset,omitempty"`
}

type activityOutput struct {
	Count int           `json:"count"`
	Items []ActivityDTO `json:"items"`
}

func registerProjectTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a project chaired by the calling student. It starts active.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in createProjectInput) (ProjectDTO, error) {
		p, err := svc.Projects.Create(ctx, caller, project.CreateRequest{
			Name:        in.Name,
			Topic:       in.Topic,
			Description: in.Description,
		})
		if err != nil {
			return ProjectDTO{}, err
		}
		return toProjectDTO(p), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "Get a project. Its team and teacher also see its logbook entries.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (ProjectDetail, error) {
		p, err := svc.Projects.Get(ctx, in.ID)
		if err != nil {
			return ProjectDetail{}, err
		}
		detail := ProjectDetail{Project: toProjectDTO(p)}
		if p.IsMember(caller.UserID) || p.IsTeacher(caller.UserID) {
			entries, err := svc.Logbooks.List(ctx, caller, p.ID, map[string]string{"limit": projectLogbookLimit})
			if err != nil {
				return ProjectDetail{}, err
			}
			detail.Logbooks = mapSlice(entries, toLogbookDTO)
		}
		return detail, nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the caller's projects (chaired, joined or mentored). params published=true lists every published project.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in listInput) (ListOutput, error) {
		projects, err := svc.Projects.List(ctx, caller, in.Params)
		if err != nil {
			return ListOutput{}, err
		}
		return listing(mapSlice(projects, toProjectDTO), in.Params, project.Schema)
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "activate_project",
		Description: "Make a project the chairman's only active project",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (ProjectDTO, error) {
		p, err := svc.Projects.Activate(ctx, caller, in.ID)
		if err != nil {
			return ProjectDTO{}, err
		}
		return toProjectDTO(p), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_project",
		Description: "Edit name, topic, description, teacher or add members. Chairman only.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in updateProjectInput) (ProjectDTO, error) {
		p, err := svc.Projects.Update(ctx, caller, project.UpdateRequest{
			ID:          in.ID,
			Name:        in.Name,
			Topic:       in.Topic,
			Description: in.Description,
			TeacherID:   in.TeacherID,
			Members:     in.Members,
			Version:     in.Version,
		})
		if err != nil {
			return ProjectDTO{}, err
		}
		return toProjectDTO(p), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "upload_results",
		Description: "Replace the project's result images and mark it finished. Chairman only.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in uploadResultsInput) (ProjectDTO, error) {
		files, err := decodeFiles(in.Files)
		if err != nil {
			return ProjectDTO{}, err
		}
		p, err := svc.Projects.UploadResults(ctx, caller, in.ID, files)
		if err != nil {
			return ProjectDTO{}, err
		}
		return toProjectDTO(p), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "publish_project",
		Description: "Publish a finished project. Teacher only.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (ProjectDTO, error) {
		p, err := svc.Projects.Publish(ctx, caller, in.ID)
		if err != nil {
			return ProjectDTO{}, err
		}
		return toProjectDTO(p), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project with its logbook entries and reactions. Chairman only.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (okOutput, error) {
		if err := svc.Projects.Delete(ctx, caller, in.ID); err != nil {
			return okOutput{}, err
		}
		return okOutput{OK: true}, nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "current_project",
		Description: "Get the caller's single active project",
	}, withCaller(func(ctx context.Context, caller user.Identity, _ noInput) (ProjectDTO, error) {
		p, err := svc.Logbooks.ResolveCurrentProject(ctx, caller)
		if err != nil {
			return ProjectDTO{}, err
		}
		return toProjectDTO(p), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "project_activity",
		Description: "Recent audit trail of a project, newest first",
	}, withCaller(func(ctx context.Context, caller user.Identity, in projectActivityInput) (activityOutput, error) {
		p, err := svc.Projects.Get(ctx, in.ProjectID)
		if err != nil {
			return activityOutput{}, err
		}
		if !p.IsMember(caller.UserID) && !p.IsTeacher(caller.UserID) {
			return activityOutput{}, errNotOnProject
		}
		opts := activity.ListActivityOptions{ProjectID: p.ID, Limit: in.Limit, Offset: in.Offset}
		if in.Type != "" {
			typ := activity.ActivityType(in.Type)
			opts.ActivityType = &typ
		}
		entries, err := svc.Activity.GetRecentActivity(ctx, opts)
		if err != nil {
			return activityOutput{}, err
		}
		items := mapSlice(entries, toActivityDTO)
		return activityOutput{Count: len(items), Items: items}, nil
	}))
}

type commentInput struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
	Content   string `json:"content" jsonschema:"comment text"`
}

type commentListInput struct {
	ProjectID string            `json:"project_id" jsonschema:"project id"`
	Params    map[string]string `json:"params,omitempty" jsonschema:"listing parameters"`
}

type myReactionsInput struct {
	Kind   string            `json:"kind" jsonschema:"like, bookmark or comment"`
	Params map[string]string `json:"params,omitempty" jsonschema:"listing parameters"`
}

func registerReactionTools(server *sdkmcp.Server, svc Services) {
	react := func(name, description string, fn func(context.Context, user.Identity, string) (*reaction.Reaction, error)) {
		sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
			withCaller(func(ctx context.Context, caller user.Identity, in projectRefInput) (ReactionDTO, error) {
				r, err := fn(ctx, caller, in.ProjectID)
				if err != nil {
					return ReactionDTO{}, err
				}
				return toReactionDTO(r), nil
			}))
	}
	unreact := func(name, description string, fn func(context.Context, user.Identity, string) error) {
		sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
			withCaller(func(ctx context.Context, caller user.Identity, in projectRefInput) (okOutput, error) {
				if err := fn(ctx, caller, in.ProjectID); err != nil {
					return okOutput{}, err
				}
				return okOutput{OK: true}, nil
			}))
	}

	react("like_project", "Like a project once", svc.Reactions.Like)
	unreact("unlike_project", "Remove the caller's like", svc.Reactions.Unlike)
	react("bookmark_project", "Bookmark a project once", svc.Reactions.Bookmark)
	unreact("unbookmark_project", "Remove the caller's bookmark", svc.Reactions.Unbookmark)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "comment_project",
		Description: "Comment on a project",
	}, withCaller(func(ctx context.Context, caller user.Identity, in commentInput) (ReactionDTO, error) {
		r, err := svc.Reactions.Comment(ctx, caller, in.ProjectID, in.Content)
		if err != nil {
			return ReactionDTO{}, err
		}
		return toReactionDTO(r), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_comment",
		Description: "Delete a comment. Its author or the project chairman only.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (okOutput, error) {
		if err := svc.Reactions.DeleteComment(ctx, caller, in.ID); err != nil {
			return okOutput{}, err
		}
		return okOutput{OK: true}, nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_comments",
		Description: "List the comments on a project",
	}, withCaller(func(ctx context.Context, _ user.Identity, in commentListInput) (ListOutput, error) {
		items, err := svc.Reactions.ListComments(ctx, in.ProjectID, in.Params)
		if err != nil {
			return ListOutput{}, err
		}
		return listing(mapSlice(items, toReactionDTO), in.Params, reaction.Schema)
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_my_reactions",
		Description: "List the projects the caller liked or bookmarked, or the caller's comments",
	}, withCaller(func(ctx context.Context, caller user.Identity, in myReactionsInput) (ListOutput, error) {
		items, err := svc.Reactions.ListMine(ctx, caller, reaction.Kind(in.Kind), in.Params)
		if err != nil {
			return ListOutput{}, err
		}
		return listing(mapSlice(items, toReactionDTO), in.Params, reaction.Schema)
	}))
}

type createLogbookInput struct {
	ProjectID   string      `json:"project_id,omitempty" jsonschema:"project id; defaults to the caller's current project"`
	Date        string      `json:"date" jsonschema:"YYYY-MM-DD or RFC 3339"`
	Activity    string      `json:"activity" jsonschema:"what was done"`
	Time        int         `json:"time" jsonschema:"minutes spent"`
	Attachments []FileInput `json:"attachments" jsonschema:"at least one image or PDF"`
}

type updateLogbookInput struct {
	ID          string      `json:"id" jsonschema:"logbook entry id"`
	Date        *string     `json:"date,omitempty"`
	Activity    *string     `json:"activity,omitempty"`
	Time        *int        `json:"time,omitempty" jsonschema:"minutes spent"`
	Attachments []FileInput `json:"attachments,omitempty" jsonschema:"files appended to the entry"`
}

type logbookListInput struct {
	ProjectID string            `json:"project_id,omitempty" jsonschema:"project id; defaults to the caller's current project"`
	Params    map[string]string `json:"params,omitempty" jsonschema:"listing parameters"`
}

type deleteAttachmentsInput struct {
	ID    string   `json:"id" jsonschema:"logbook entry id"`
	Names []string `json:"names" jsonschema:"attachment handles to remove; all must exist on the entry"`
}

func registerLogbookTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_logbook",
		Description: "Add a logbook entry to an active project the caller works on",
	}, withCaller(func(ctx context.Context, caller user.Identity, in createLogbookInput) (LogbookDTO, error) {
		files, err := decodeFiles(in.Attachments)
		if err != nil {
			return LogbookDTO{}, err
		}
		e, err := svc.Logbooks.Create(ctx, caller, logbook.CreateRequest{
			ProjectID:   in.ProjectID,
			Date:        in.Date,
			Activity:    in.Activity,
			TimeSpent:   in.Time,
			Attachments: files,
		})
		if err != nil {
			return LogbookDTO{}, err
		}
		return toLogbookDTO(e), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_logbook",
		Description: "Get a logbook entry",
	}, withCaller(func(ctx context.Context, _ user.Identity, in idInput) (LogbookDTO, error) {
		e, err := svc.Logbooks.Get(ctx, in.ID)
		if err != nil {
			return LogbookDTO{}, err
		}
		return toLogbookDTO(e), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_logbooks",
		Description: "List a project's logbook entries",
	}, withCaller(func(ctx context.Context, caller user.Identity, in logbookListInput) (ListOutput, error) {
		entries, err := svc.Logbooks.List(ctx, caller, in.ProjectID, in.Params)
		if err != nil {
			return ListOutput{}, err
		}
		return listing(mapSlice(entries, toLogbookDTO), in.Params, logbook.Schema)
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_logbook",
		Description: "Edit date, activity or time of an entry of the caller's current project and append attachments",
	}, withCaller(func(ctx context.Context, caller user.Identity, in updateLogbookInput) (LogbookDTO, error) {
		files, err := decodeFiles(in.Attachments)
		if err != nil {
			return LogbookDTO{}, err
		}
		e, err := svc.Logbooks.Update(ctx, caller, logbook.UpdateRequest{
			ID:          in.ID,
			Date:        in.Date,
			Activity:    in.Activity,
			TimeSpent:   in.Time,
			Attachments: files,
		})
		if err != nil {
			return LogbookDTO{}, err
		}
		return toLogbookDTO(e), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "validate_logbook",
		Description: "Mark an entry valid. Project teacher only; cannot be undone.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (LogbookDTO, error) {
		e, err := svc.Logbooks.Validate(ctx, caller, in.ID)
		if err != nil {
			return LogbookDTO{}, err
		}
		return toLogbookDTO(e), nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_logbook",
		Description: "Delete an entry and its attachments",
	}, withCaller(func(ctx context.Context, caller user.Identity, in idInput) (okOutput, error) {
		if err := svc.Logbooks.Delete(ctx, caller, in.ID); err != nil {
			return okOutput{}, err
		}
		return okOutput{OK: true}, nil
	}))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_logbook_attachments",
		Description: "Remove named attachments from an entry. Nothing is removed if any name is missing.",
	}, withCaller(func(ctx context.Context, caller user.Identity, in deleteAttachmentsInput) (LogbookDTO, error) {
		e, err := svc.Logbooks.DeleteAttachments(ctx, caller, in.ID, in.Names)
		if err != nil {
			return LogbookDTO{}, err
		}
		return toLogbookDTO(e), nil
	}))
}
