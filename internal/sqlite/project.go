package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/teamwork/internal/domain/engagement"
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

var (
	_ project.Repository     = (*ProjectRepository)(nil)
	_ reaction.ProjectOwners = (*ProjectRepository)(nil)
	_ engagement.Counter     = (*ProjectRepository)(nil)
)

var projectColumns = columns{
	query.Sequence:   "p.rowid",
	"id":             "p.id",
	"name":           "p.name",
	"topic":          "p.topic",
	"description":    "p.description",
	"chairman_id":    "p.chairman_id",
	"teacher_id":     "p.teacher_id",
	"active":         "p.active",
	"finished":       "p.finished",
	"published":      "p.published",
	"like_count":     "p.like_count",
	"bookmark_count": "p.bookmark_count",
	"comment_count":  "p.comment_count",
	"created_at":     "p.created_at",
	"updated_at":     "p.updated_at",
}

var counterColumns = map[reaction.Kind]string{
	reaction.KindLike:     "like_count",
	reaction.KindBookmark: "bookmark_count",
	reaction.KindComment:  "comment_count",
}

const projectSelect = `
	SELECT p.id, p.name, p.topic, p.description, p.chairman_id, p.teacher_id,
		p.active, p.finished, p.published, p.results,
		p.like_count, p.bookmark_count, p.comment_count,
		p.version, p.created_at, p.updated_at
	FROM projects p`

// onTeam matches projects the user chairs or belongs to.
const onTeam = `(p.chairman_id = ? OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = ?))`

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project with its members.
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	results, err := encodeList(p.Results)
	if err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (
				id, name, topic, description, chairman_id, teacher_id,
				active, finished, published, results, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Topic, p.Description, p.ChairmanID, nullString(p.TeacherID),
			boolInt(p.Active), boolInt(p.Finished), boolInt(p.Published), results,
			p.Version, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		)
		if err != nil {
			return mapWriteError("create project", err)
		}
		return replaceMembers(ctx, tx, p.ID, p.Members)
	})
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	projects := []project.Project{*p}
	if err := loadMembers(ctx, r.db, projects); err != nil {
		return nil, err
	}
	return &projects[0], nil
}

// List returns the projects inside scope that match desc.
func (r *ProjectRepository) List(ctx context.Context, scope project.Scope, desc query.Descriptor) ([]project.Project, error) {
	var (
		visible []string
		args    []any
	)
	if scope.MemberID != "" {
		visible = append(visible, onTeam)
		args = append(args, scope.MemberID, scope.MemberID)
	}
	if scope.TeacherID != "" {
		visible = append(visible, "p.teacher_id = ?")
		args = append(args, scope.TeacherID)
	}
	if scope.PublishedOnly {
		visible = append(visible, "p.published = 1")
	}

	var base []string
	if len(visible) > 0 {
		base = []string{"(" + strings.Join(visible, " OR ") + ")"}
	}

	stmt, args, err := listSQL(projectSelect, desc, projectColumns, base, args)
	if err != nil {
		return nil, err
	}
	return r.queryProjects(ctx, stmt, args...)
}

// ActiveFor lists the active projects a student works on or a mentor guides.
func (r *ProjectRepository) ActiveFor(ctx context.Context, userID string, role user.Role) ([]project.Project, error) {
	if role == user.RoleMentor {
		return r.queryProjects(ctx, projectSelect+` WHERE p.active = 1 AND p.teacher_id = ? ORDER BY p.rowid`, userID)
	}
	return r.queryProjects(ctx, projectSelect+` WHERE p.active = 1 AND `+onTeam+` ORDER BY p.rowid`, userID, userID)
}

// Activate deactivates every other project of the chairman and activates
// projectID in a single transaction.
func (r *ProjectRepository) Activate(ctx context.Context, chairmanID, projectID string) error {
	now := formatTime(time.Now())
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT chairman_id FROM projects WHERE id = ?`, projectID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		if owner != chairmanID {
			return repository.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE projects SET active = 0, version = version + 1, updated_at = ?
			WHERE chairman_id = ? AND active = 1 AND id <> ?`,
			now, chairmanID, projectID,
		); err != nil {
			return fmt.Errorf("failed to deactivate projects: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE projects SET active = 1, version = version + 1, updated_at = ?
			WHERE id = ? AND active = 0`,
			now, projectID,
		); err != nil {
			return mapWriteError("activate project", err)
		}
		return nil
	})
}

// Update writes the mutable fields of p when the stored version matches.
// Engagement counters are left alone.
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project, expectedVersion int64) error {
	results, err := encodeList(p.Results)
	if err != nil {
		return err
	}

	err = r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET
				name = ?, topic = ?, description = ?, teacher_id = ?,
				active = ?, finished = ?, published = ?, results = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			p.Name, p.Topic, p.Description, nullString(p.TeacherID),
			boolInt(p.Active), boolInt(p.Finished), boolInt(p.Published), results,
			formatTime(p.UpdatedAt), p.ID, expectedVersion,
		)
		if err != nil {
			return mapWriteError("update project", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, p.ID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to check project: %w", err)
			}
			return repository.ErrConflict
		}

		return replaceMembers(ctx, tx, p.ID, p.Members)
	})
	if err != nil {
		return err
	}

	p.Version = expectedVersion + 1
	return nil
}

// Delete removes the project. Members and reactions go by cascade; logbook
// entries are removed explicitly so their attachments can be collected.
func (r *ProjectRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var handles []string
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var results string
		err := tx.QueryRowContext(ctx, `SELECT results FROM projects WHERE id = ?`, id).Scan(&results)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		list, err := decodeList(results)
		if err != nil {
			return err
		}
		handles = append(handles, list...)

		rows, err := tx.QueryContext(ctx, `SELECT attachments FROM logbooks WHERE project_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to load logbook attachments: %w", err)
		}
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan attachments: %w", err)
			}
			list, err := decodeList(raw)
			if err != nil {
				rows.Close()
				return err
			}
			handles = append(handles, list...)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating logbook rows: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM logbooks WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete logbooks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

// ChairmanOf implements reaction.ProjectOwners.
func (r *ProjectRepository) ChairmanOf(ctx context.Context, projectID string) (string, error) {
	var chairman string
	err := r.db.QueryRowContext(ctx, `SELECT chairman_id FROM projects WHERE id = ?`, projectID).Scan(&chairman)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get chairman: %w", err)
	}
	return chairman, nil
}

// Recount implements engagement.Counter with a single statement, so the
// stored value always equals the reaction count at the time of the write.
func (r *ProjectRepository) Recount(ctx context.Context, projectID string, kind reaction.Kind) (int, error) {
	col, ok := counterColumns[kind]
	if !ok {
		return 0, fmt.Errorf("recount %q: %w", kind, repository.ErrInvalidInput)
	}

	stmt := fmt.Sprintf(`
		UPDATE projects
		SET %[1]s = (SELECT COUNT(*) FROM reactions WHERE project_id = projects.id AND kind = ?)
		WHERE id = ?
		RETURNING %[1]s`, col)

	var n int
	err := r.db.QueryRowContext(ctx, stmt, string(kind), projectID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to recount %s: %w", kind, err)
	}
	return n, nil
}

// ProjectIDs implements engagement.Counter.
func (r *ProjectRepository) ProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProjectRepository) queryProjects(ctx context.Context, stmt string, args ...any) ([]project.Project, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	// Members are loaded on the same connection, so rows must be closed first.
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}

	if err := loadMembers(ctx, r.db, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func scanProject(row rowScanner) (*project.Project, error) {
	var (
		p                             project.Project
		teacher                       sql.NullString
		active, finished, published   int
		results, createdAt, updatedAt string
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Topic, &p.Description, &p.ChairmanID, &teacher,
		&active, &finished, &published, &results,
		&p.LikeCount, &p.BookmarkCount, &p.CommentCount,
		&p.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	p.TeacherID = teacher.String
	p.Active = active == 1
	p.Finished = finished == 1
	p.Published = published == 1

	var err error
	if p.Results, err = decodeList(results); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	p.Members = []string{}
	return &p, nil
}

// loadMembers fills Members for every project with one query.
func loadMembers(ctx context.Context, q queryer, projects []project.Project) error {
	if len(projects) == 0 {
		return nil
	}

	index := make(map[string]int, len(projects))
	args := make([]any, 0, len(projects))
	for i, p := range projects {
		index[p.ID] = i
		args = append(args, p.ID)
	}

	stmt := `SELECT project_id, user_id FROM project_members WHERE project_id IN (` +
		placeholders(len(args)) + `) ORDER BY project_id, position`
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID, userID string
		if err := rows.Scan(&projectID, &userID); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		i := index[projectID]
		projects[i].Members = append(projects[i].Members, userID)
	}
	return rows.Err()
}

func replaceMembers(ctx context.Context, tx *sql.Tx, projectID string, members []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	for i, m := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_members (project_id, user_id, position) VALUES (?, ?, ?)`,
			projectID, m, i,
		); err != nil {
			return mapWriteError("add member", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	items := []string{}
	if raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return items, nil
}
