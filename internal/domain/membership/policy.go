// Package membership decides who may join a project team or mentor it.
package membership

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSchoolMismatch indicates a candidate from another school.
	ErrSchoolMismatch = shared.New("membership", shared.ErrValidation, "user is not in the same school")
	// ErrAlreadyMember indicates a candidate already on the team.
	ErrAlreadyMember = shared.New("membership", shared.ErrValidation, "user is already a member of this project")
	// ErrUnknownUser indicates a candidate that doesn't exist.
	ErrUnknownUser = shared.New("membership", shared.ErrValidation, "user does not exist")
	// ErrNotStudent indicates a mentor proposed as team member.
	ErrNotStudent = shared.New("membership", shared.ErrValidation, "only students can be members")
	// ErrOnActiveProject indicates a candidate who already works on an active project.
	ErrOnActiveProject = shared.New("membership", shared.ErrConflict, "user already works on an active project")
	// ErrNotMentor indicates a student proposed as teacher.
	ErrNotMentor = shared.New("membership", shared.ErrValidation, "teacher must be a mentor")
)

const defaultLookupLimit = 8

// UserLookup fetches users. Missing users yield repository.ErrNotFound.
type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// ActiveProjects finds the active projects a user works on.
type ActiveProjects interface {
	ActiveFor(ctx context.Context, userID string, role user.Role) ([]project.Project, error)
}

// Policy validates member and teacher changes. It has no side effects.
type Policy struct {
	users    UserLookup
	projects ActiveProjects
	limit    int
}

// NewPolicy creates a Policy. limit bounds concurrent user lookups; values
// below one mean the default. A nil projects skips the active project check.
func NewPolicy(users UserLookup, projects ActiveProjects, limit int) *Policy {
	if limit < 1 {
		limit = defaultLookupLimit
	}
	return &Policy{users: users, projects: projects, limit: limit}
}

// ValidateMembers checks every candidate independently and returns the first
// rejection in candidate order, or nil. Repeated candidates are checked once.
func (p *Policy) ValidateMembers(ctx context.Context, candidates []string, chairmanSchool string, existing []string) error {
	unique := dedupe(candidates)
	verdicts := make([]error, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, id := range unique {
		if slices.Contains(existing, id) {
			verdicts[i] = shared.Detail(ErrAlreadyMember, "%s", id)
			continue
		}
		g.Go(func() error {
			verdicts[i] = p.judge(gctx, id, chairmanSchool)
			// Verdicts are collected, not propagated, so one bad lookup
			// never cancels the others.
			return nil
		})
	}
	_ = g.Wait()

	for _, v := range verdicts {
		if v != nil {
			return v
		}
	}
	return nil
}

func (p *Policy) judge(ctx context.Context, id, chairmanSchool string) error {
	u, err := p.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, user.ErrUserNotFound) {
			return shared.Detail(ErrUnknownUser, "%s", id)
		}
		return fmt.Errorf("looking up member %s: %w", id, err)
	}
	if u.SchoolID != chairmanSchool {
		return shared.Detail(ErrSchoolMismatch, "%s (%s)", u.FullName(), id)
	}
	if u.Role != user.RoleStudent {
		return shared.Detail(ErrNotStudent, "%s (%s)", u.FullName(), id)
	}
	if p.projects == nil {
		return nil
	}

	// Candidates are never on this team yet, so any active project is another one.
	active, err := p.projects.ActiveFor(ctx, id, user.RoleStudent)
	if err != nil {
		return fmt.Errorf("finding active projects of %s: %w", id, err)
	}
	if len(active) > 0 {
		return shared.Detail(ErrOnActiveProject, "%s (%s) works on %s", u.FullName(), id, active[0].Name)
	}
	return nil
}

// ValidateTeacher checks that teacherID names a mentor of the chairman's school.
func (p *Policy) ValidateTeacher(ctx context.Context, teacherID, chairmanSchool string) (*user.User, error) {
	u, err := p.users.Get(ctx, teacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, user.ErrUserNotFound) {
			return nil, shared.Detail(ErrUnknownUser, "%s", teacherID)
		}
		return nil, fmt.Errorf("looking up teacher %s: %w", teacherID, err)
	}
	if u.Role != user.RoleMentor {
		return nil, shared.Detail(ErrNotMentor, "%s (%s)", u.FullName(), teacherID)
	}
	if u.SchoolID != chairmanSchool {
		return nil, shared.Detail(ErrSchoolMismatch, "%s (%s)", u.FullName(), teacherID)
	}
	return u, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
