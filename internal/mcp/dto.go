package mcp

import (
	"encoding/base64"
	"time"

	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/logbook"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
)

// Wire shapes. JSON names match the query field names so that projections and
// filters use the same vocabulary as the output.

type ProjectDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Topic         string   `json:"topic"`
	Description   string   `json:"description"`
	ChairmanID    string   `json:"chairman_id"`
	TeacherID     string   `json:"teacher_id,omitempty"`
	Members       []string `json:"members"`
	Active        bool     `json:"active"`
	Finished      bool     `json:"finished"`
	Published     bool     `json:"published"`
	Results       []string `json:"results"`
	LikeCount     int      `json:"like_count"`
	BookmarkCount int      `json:"bookmark_count"`
	CommentCount  int      `json:"comment_count"`
	Version       int64    `json:"version"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

type LogbookDTO struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	AuthorID    string   `json:"author_id"`
	Date        string   `json:"date"`
	Activity    string   `json:"activity"`
	Time        int      `json:"time" jsonschema:"minutes spent"`
	Attachments []string `json:"attachments"`
	Valid       bool     `json:"valid"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type ReactionDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content,omitempty"`
	CreatedAt string `json:"created_at"`
}

type UserDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	SchoolID  string `json:"school_id"`
	CreatedAt string `json:"created_at"`
}

type ActivityDTO struct {
	ID        int64  `json:"id"`
	ProjectID string `json:"project_id"`
	ActorID   string `json:"actor_id"`
	LogbookID string `json:"logbook_id,omitempty"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

// FileInput is an uploaded file, base64 encoded.
type FileInput struct {
	Name        string `json:"name" jsonschema:"original file name"`
	ContentType string `json:"content_type" jsonschema:"MIME type, e.g. image/png or application/pdf"`
	Data        string `json:"data" jsonschema:"file content, standard base64"`
}

var errBadFile = shared.New("mcp", shared.ErrValidation, "invalid file")

func decodeFiles(in []FileInput) ([]attachment.File, error) {
	files := make([]attachment.File, 0, len(in))
	for _, f := range in {
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return nil, shared.Detail(errBadFile, "%s is not valid base64", f.Name)
		}
		files = append(files, attachment.File{Name: f.Name, ContentType: f.ContentType, Data: data})
	}
	return files, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toProjectDTO(p *project.Project) ProjectDTO {
	return ProjectDTO{
		ID:            p.ID,
		Name:          p.Name,
		Topic:         p.Topic,
		Description:   p.Description,
		ChairmanID:    p.ChairmanID,
		TeacherID:     p.TeacherID,
		Members:       nonNil(p.Members),
		Active:        p.Active,
		Finished:      p.Finished,
		Published:     p.Published,
		Results:       nonNil(p.Results),
		LikeCount:     p.LikeCount,
		BookmarkCount: p.BookmarkCount,
		CommentCount:  p.CommentCount,
		Version:       p.Version,
		CreatedAt:     formatTimestamp(p.CreatedAt),
		UpdatedAt:     formatTimestamp(p.UpdatedAt),
	}
}

func toLogbookDTO(e *logbook.Entry) LogbookDTO {
	return LogbookDTO{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		AuthorID:    e.AuthorID,
		Date:        e.Date.UTC().Format(time.DateOnly),
		Activity:    e.Activity,
		Time:        e.TimeSpent,
		Attachments: nonNil(e.Attachments),
		Valid:       e.Valid,
		CreatedAt:   formatTimestamp(e.CreatedAt),
		UpdatedAt:   formatTimestamp(e.UpdatedAt),
	}
}

func toReactionDTO(r *reaction.Reaction) ReactionDTO {
	return ReactionDTO{
		ID:        r.ID,
		Kind:      string(r.Kind),
		ProjectID: r.ProjectID,
		UserID:    r.UserID,
		Content:   r.Content,
		CreatedAt: formatTimestamp(r.CreatedAt),
	}
}

// toUserDTO renders u. Email is only shown to the user themselves.
func toUserDTO(u *user.User, withEmail bool) UserDTO {
	dto := UserDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Username:  u.Username,
		Role:      string(u.Role),
		SchoolID:  u.SchoolID,
		CreatedAt: formatTimestamp(u.CreatedAt),
	}
	if withEmail {
		dto.Email = u.Email
	}
	return dto
}

func toActivityDTO(a *activity.ActivityEntry) ActivityDTO {
	dto := ActivityDTO{
		ID:        a.ID,
		ProjectID: a.ProjectID,
		ActorID:   a.ActorID,
		Type:      string(a.ActivityType),
		Summary:   a.Summary,
		Details:   a.Details,
		CreatedAt: formatTimestamp(a.CreatedAt),
	}
	if a.LogbookID != nil {
		dto.LogbookID = *a.LogbookID
	}
	return dto
}

func mapSlice[T, D any](items []T, fn func(*T) D) []D {
	out := make([]D, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
