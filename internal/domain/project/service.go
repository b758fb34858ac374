package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/teamwork/internal/attachment"
	"github.com/rpggio/teamwork/internal/domain/activity"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

// maxUpdateAttempts bounds the re-read loop for writes that carry no
// caller-supplied version.
const maxUpdateAttempts = 3

// Service handles project operations.
type Service struct {
	repo        Repository
	policy      MembershipPolicy
	attachments Attachments
	activity    ActivityRecorder
	logger      *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, policy MembershipPolicy, attachments Attachments, recorder ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		policy:      policy,
		attachments: attachments,
		activity:    recorder,
		logger:      shared.Logger(logger),
	}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Name        string
	Topic       string
	Description string
}

// Create creates a new active project chaired by the caller.
func (s *Service) Create(ctx context.Context, caller user.Identity, req CreateRequest) (*Project, error) {
	if !caller.IsStudent() {
		return nil, ErrStudentsOnly
	}
	name, topic := strings.TrimSpace(req.Name), strings.TrimSpace(req.Topic)
	if name == "" || topic == "" {
		return nil, shared.Detail(ErrInvalidInput, "name and topic are required")
	}

	active, err := s.repo.ActiveFor(ctx, caller.UserID, caller.Role)
	if err != nil {
		return nil, fmt.Errorf("checking active projects: %w", err)
	}
	if len(active) > 0 {
		return nil, shared.Detail(ErrActiveProjectExists, "%s", active[0].Name)
	}

	now := time.Now().UTC()
	proj := &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Topic:       topic,
		Description: strings.TrimSpace(req.Description),
		ChairmanID:  caller.UserID,
		Members:     []string{},
		Results:     []string{},
		Active:      true,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrActiveProjectExists
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.record(ctx, caller, proj.ID, activity.TypeProjectCreated, "created project "+proj.Name)
	return proj, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrProjectNotFound, "id %s", id)
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns the projects visible to the caller. A published=true parameter
// widens the scope to every published project.
func (s *Service) List(ctx context.Context, caller user.Identity, params map[string]string) ([]Project, error) {
	desc, err := query.TranslateMap(params, Schema)
	if err != nil {
		return nil, err
	}

	var scope Scope
	switch {
	case strings.EqualFold(params["published"], "true"):
		scope.PublishedOnly = true
	case caller.IsMentor():
		scope.TeacherID = caller.UserID
	default:
		scope.MemberID = caller.UserID
	}

	projects, err := s.repo.List(ctx, scope, desc)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Search lists projects whose name contains text, ignoring case.
func (s *Service) Search(ctx context.Context, text string, params map[string]string) ([]Project, error) {
	desc, err := query.TranslateMap(params, Schema)
	if err != nil {
		return nil, err
	}
	if text = strings.TrimSpace(text); text != "" {
		desc = desc.Where(query.Clause{Field: "name", Op: query.OpContains, Value: text})
	}
	projects, err := s.repo.List(ctx, Scope{}, desc)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	return projects, nil
}

// ActiveFor lists the active projects the caller works on or mentors.
func (s *Service) ActiveFor(ctx context.Context, caller user.Identity) ([]Project, error) {
	projects, err := s.repo.ActiveFor(ctx, caller.UserID, caller.Role)
	if err != nil {
		return nil, fmt.Errorf("finding active projects: %w", err)
	}
	return projects, nil
}

// Activate makes the project the chairman's single active project.
func (s *Service) Activate(ctx context.Context, caller user.Identity, id string) (*Project, error) {
	proj, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !proj.IsChairman(caller.UserID) {
		return nil, ErrNotChairman
	}
	for _, m := range proj.Members {
		active, err := s.repo.ActiveFor(ctx, m, user.RoleStudent)
		if err != nil {
			return nil, fmt.Errorf("checking member projects: %w", err)
		}
		for _, other := range active {
			// The chairman's other projects are deactivated below.
			if other.ID != id && other.ChairmanID != caller.UserID {
				return nil, shared.Detail(ErrMemberBusy, "%s works on %s", m, other.Name)
			}
		}
	}

	if err := s.repo.Activate(ctx, caller.UserID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrProjectNotFound, "id %s", id)
		}
		return nil, fmt.Errorf("activating project: %w", err)
	}

	s.record(ctx, caller, id, activity.TypeProjectActivated, "activated project "+proj.Name)
	return s.Get(ctx, id)
}

// UpdateRequest defines the mutable project fields. Nil fields are left alone.
type UpdateRequest struct {
	ID          string
	Name        *string
	Topic       *string
	Description *string
	TeacherID   *string
	// Members are added to the team; existing members stay.
	Members []string
	// Version, when set, must match the stored version.
	Version *int64
}

// Update applies chairman edits.
func (s *Service) Update(ctx context.Context, caller user.Identity, req UpdateRequest) (*Project, error) {
	chairmanSchool := caller.SchoolID

	proj, err := s.mutate(ctx, req.ID, req.Version, func(p *Project) error {
		if !p.IsChairman(caller.UserID) {
			return ErrNotChairman
		}
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return shared.Detail(ErrInvalidInput, "name cannot be empty")
			}
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Topic != nil {
			if strings.TrimSpace(*req.Topic) == "" {
				return shared.Detail(ErrInvalidInput, "topic cannot be empty")
			}
			p.Topic = strings.TrimSpace(*req.Topic)
		}
		if req.Description != nil {
			p.Description = strings.TrimSpace(*req.Description)
		}
		if req.TeacherID != nil {
			teacherID := strings.TrimSpace(*req.TeacherID)
			if teacherID != "" {
				if _, err := s.policy.ValidateTeacher(ctx, teacherID, chairmanSchool); err != nil {
					return err
				}
			}
			p.TeacherID = teacherID
		}
		if len(req.Members) > 0 {
			if err := s.policy.ValidateMembers(ctx, req.Members, chairmanSchool, p.Team()); err != nil {
				return err
			}
			for _, m := range req.Members {
				if !slices.Contains(p.Members, m) {
					p.Members = append(p.Members, m)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, caller, proj.ID, activity.TypeProjectUpdated, "updated project "+proj.Name)
	return proj, nil
}

// UploadResults replaces the project's results and marks it finished.
func (s *Service) UploadResults(ctx context.Context, caller user.Identity, id string, files []attachment.File) (*Project, error) {
	if len(files) == 0 {
		return nil, ErrNoResults
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsChairman(caller.UserID) {
		return nil, ErrNotChairman
	}

	handles, err := s.attachments.Save(ctx, files, attachment.ResultsPolicy)
	if err != nil {
		return nil, err
	}

	var old []string
	proj, err := s.mutate(ctx, id, nil, func(p *Project) error {
		if !p.IsChairman(caller.UserID) {
			return ErrNotChairman
		}
		old = p.Results
		p.Results = handles
		p.Finished = true
		return nil
	})
	if err != nil {
		s.attachments.Release(ctx, handles...)
		return nil, err
	}

	s.attachments.Release(ctx, old...)
	s.record(ctx, caller, id, activity.TypeResultsUploaded, fmt.Sprintf("uploaded %d result file(s)", len(handles)))
	return proj, nil
}

// Publish makes a finished project public. Only its teacher may do so.
// Publishing an already published project returns it unchanged.
func (s *Service) Publish(ctx context.Context, caller user.Identity, id string) (*Project, error) {
	changed := false
	proj, err := s.mutate(ctx, id, nil, func(p *Project) error {
		if !p.IsTeacher(caller.UserID) {
			return ErrNotTeacher
		}
		if !p.Finished {
			return ErrNotFinished
		}
		changed = !p.Published
		p.Published = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.record(ctx, caller, id, activity.TypeProjectPublished, "published project "+proj.Name)
	}
	return proj, nil
}

// Delete removes the project together with its logbook entries and reactions.
// Every attachment they referenced is released for cleanup.
func (s *Service) Delete(ctx context.Context, caller user.Identity, id string) error {
	proj, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !proj.IsChairman(caller.UserID) {
		return ErrNotChairman
	}

	handles, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return shared.Detail(ErrProjectNotFound, "id %s", id)
		}
		return fmt.Errorf("deleting project: %w", err)
	}

	s.attachments.Release(ctx, handles...)
	s.record(ctx, caller, id, activity.TypeProjectDeleted, "deleted project "+proj.Name)
	s.logger.Info("project deleted", "project_id", id, "released_attachments", len(handles))
	return nil
}

// mutate loads the project, applies fn and writes it back guarded by the
// version. Without an expected version a lost race is retried on a fresh read.
func (s *Service) mutate(ctx context.Context, id string, expected *int64, fn func(p *Project) error) (*Project, error) {
	for attempt := 1; ; attempt++ {
		proj, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		version := proj.Version
		if expected != nil {
			if *expected != version {
				return nil, shared.Detail(ErrVersionConflict, "expected version %d, found %d", *expected, version)
			}
		}

		if err := fn(proj); err != nil {
			return nil, err
		}
		proj.UpdatedAt = time.Now().UTC()

		err = s.repo.Update(ctx, proj, version)
		if err == nil {
			return proj, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrProjectNotFound, "id %s", id)
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("updating project: %w", err)
		}
		if expected != nil || attempt >= maxUpdateAttempts {
			return nil, ErrVersionConflict
		}
		s.logger.Debug("project version moved, retrying", "project_id", id, "attempt", attempt)
	}
}

func (s *Service) record(ctx context.Context, caller user.Identity, projectID string, typ activity.ActivityType, summary string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, &activity.ActivityEntry{
		ProjectID:    projectID,
		ActorID:      caller.UserID,
		ActivityType: typ,
		Summary:      summary,
	})
}
