package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `teamwork tracks school group projects: a student chairs a project, classmates join it, a mentor teaches it, and the team keeps a logbook of dated work.

Core concepts:
- Project: chaired by one student. A chairman has at most one active project; activate_project switches between them.
- Team: the chairman plus members. Only students of the chairman's school who are not already on an active project can join.
- Teacher: a mentor of the same school. Publishes finished projects and validates logbook entries.
- Logbook entry: date, activity, minutes spent and at least one attachment. Validation cannot be undone.
- Reactions: likes and bookmarks (one each per user and project) and comments (any number).

Workflow:
1) whoami to learn your role, then current_project or list_projects.
2) Students: create_project, update_project to add members and a teacher, create_logbook as work happens, upload_results when done.
3) Mentors: publish_project on finished projects, validate_logbook on entries.
4) Everyone: search, like_project, bookmark_project, comment_project.

Errors carry a stable code (VALIDATION_FAILED, FORBIDDEN, NOT_FOUND, CONFLICT, MALFORMED_QUERY, STORAGE_FAILURE) and a recovery hint.
update_project accepts the version from the last read; CONFLICT means someone else changed the project first.

Docs:
- teamwork://docs/index
- teamwork://docs/roles
- teamwork://docs/query
- teamwork://docs/attachments
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "teamwork://docs/index",
		Name:        "docs_index",
		Title:       "teamwork docs index",
		Description: "What each doc covers.",
		Content: `# teamwork docs

- teamwork://docs/roles: who may do what.
- teamwork://docs/query: listing parameters (filters, sort, projection, paging).
- teamwork://docs/attachments: file inputs for results and logbook entries.

Read the query doc before building filters; an unknown field returns MALFORMED_QUERY.
`,
	},
	{
		URI:         "teamwork://docs/roles",
		Name:        "docs_roles",
		Title:       "Roles and permissions",
		Description: "Student and mentor capabilities per tool.",
		Content: `# Roles

## Student

- create_project: becomes the chairman of a new active project. Fails with CONFLICT while the student already works on an active project.
- update_project, upload_results, activate_project, delete_project: chairman only.
- create_logbook: team members of an active project.
- update_logbook: team members, for entries of their current project.
- delete_logbook, delete_logbook_attachments: team members.

## Mentor

- Can be set as teacher of projects in the same school.
- publish_project: teacher only, and only once results are uploaded.
- validate_logbook: teacher only. Validating twice is harmless.

## Everyone

- get_project, list_projects, search, get_logbook.
- Likes and bookmarks: once per project. A second like returns CONFLICT.
- Comments: delete_comment by the comment author or the project chairman.
- project_activity and the logbook section of get_project: team and teacher only.

## Current project

current_project and the tools that default project_id resolve the caller's single active project:
the one a student chairs or belongs to, or the one a mentor teaches. Zero or several matches are errors.
`,
	},
	{
		URI:         "teamwork://docs/query",
		Name:        "docs_query",
		Title:       "Listing parameters",
		Description: "Syntax of the params object accepted by list and search tools.",
		Content: `# Listing parameters

List tools take a flat string map ` + "`params`" + `.

## Filters

- ` + "`name=Robot`" + `: equality.
- ` + "`like_count[gte]=3`" + ` or ` + "`like_count.gte=3`" + `: comparison. Operators: gt, gte, lt, lte, ne.
- ` + "`filter[topic][eq]=math`" + `: the filter prefix is optional.
- An unrecognized operator compares the raw text for equality.
- ` + "`filter=like_count >= 3 AND published = true`" + `: an AIP-160 expression. Only AND of simple comparisons is supported.

Values are coerced to the field type. Booleans are true/false, times are YYYY-MM-DD or RFC 3339.
Repeated conditions are combined with AND.

## Sort

` + "`sort=-created_at,name`" + `: comma separated, a leading minus sorts descending.
Without sort, newest first.

## Projection

` + "`fields=id,name,like_count`" + `: only these keys are returned.

## Paging

` + "`page=2&limit=20`" + `: page is 1-based, limit defaults to 10.
` + "`count`" + ` in the response is the number of items on this page.

## Fields

- project: id, name, topic, description, chairman_id, teacher_id, active, finished, published,
  like_count, bookmark_count, comment_count, created_at, updated_at. Selectable only: members, results.
- logbook: id, project_id, author_id, date, activity, time, valid, created_at, updated_at. Selectable only: attachments.
- reaction: id, kind, project_id, user_id, content, created_at.
- user: id, username, first_name, last_name, role, school_id, created_at. Selectable only: full_name.

Unknown fields, bad values and malformed expressions return MALFORMED_QUERY.
`,
	},
	{
		URI:         "teamwork://docs/attachments",
		Name:        "docs_attachments",
		Title:       "Attachments",
		Description: "How to send files.",
		Content: `# Attachments

Files are objects ` + "`{name, content_type, data}`" + ` with base64 data.

- upload_results: images only. Replaces previous results and marks the project finished.
- create_logbook: at least one image or PDF.
- update_logbook: files are appended.
- delete_logbook_attachments: names are the handles listed in the entry. If any name is unknown nothing is removed.

Stored files are reclaimed in the background after the owning entity is deleted.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
