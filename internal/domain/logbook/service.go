package logbook

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
	"github.com/rpggio/teamwork/internal/domain/project"
	"github.com/rpggio/teamwork/internal/domain/shared"
	"github.com/rpggio/teamwork/internal/domain/user"
	"github.com/rpggio/teamwork/internal/query"
	"github.com/rpggio/teamwork/internal/repository"
)

// maxUpdateAttempts bounds the reload loop when concurrent edits move an
// entry's version.
const maxUpdateAttempts = 3

// Service handles logbook operations.
type Service struct {
	repo        Repository
	projects    Projects
	attachments Attachments
	activity    ActivityRecorder
	logger      *slog.Logger
}

// NewService creates a new logbook service.
func NewService(repo Repository, projects Projects, attachments Attachments, recorder ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		projects:    projects,
		attachments: attachments,
		activity:    recorder,
		logger:      shared.Logger(logger),
	}
}

// ResolveCurrentProject returns the caller's single active project: the one a
// student chairs or belongs to, or the one a mentor teaches.
func (s *Service) ResolveCurrentProject(ctx context.Context, caller user.Identity) (*project.Project, error) {
	active, err := s.projects.ActiveFor(ctx, caller)
	if err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
		return nil, ErrNoActiveProject
	case 1:
		return &active[0], nil
	default:
		ids := make([]string, 0, len(active))
		for _, p := range active {
			ids = append(ids, p.ID)
		}
		s.logger.Error("caller has more than one active project",
			"user_id", caller.UserID,
			"role", caller.Role,
			"project_ids", ids,
		)
		return nil, shared.Detail(ErrAmbiguousActiveProject, "%s", strings.Join(ids, ", "))
	}
}

// CreateRequest defines logbook creation inputs. An empty ProjectID means the
// caller's current project.
type CreateRequest struct {
	ProjectID   string
	Date        string
	Activity    string
	TimeSpent   int
	Attachments []attachment.File
}

// Create adds an entry to an active project the caller works on.
func (s *Service) Create(ctx context.Context, caller user.Identity, req CreateRequest) (*Entry, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	activityText := strings.TrimSpace(req.Activity)
	if activityText == "" {
		return nil, shared.Detail(ErrInvalidInput, "activity is required")
	}
	if req.TimeSpent <= 0 {
		return nil, shared.Detail(ErrInvalidInput, "time must be a positive number of minutes")
	}
	if len(req.Attachments) == 0 {
		return nil, ErrNoAttachments
	}

	proj, err := s.targetProject(ctx, caller, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !proj.IsMember(caller.UserID) {
		return nil, ErrNotProjectMember
	}
	if !proj.Active {
		return nil, ErrProjectInactive
	}

	handles, err := s.attachments.Save(ctx, req.Attachments, attachment.LogbookPolicy)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:          uuid.NewString(),
		ProjectID:   proj.ID,
		AuthorID:    caller.UserID,
		Date:        date,
		Activity:    activityText,
		TimeSpent:   req.TimeSpent,
		Attachments: handles,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.attachments.Release(ctx, handles...)
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, shared.Detail(project.ErrProjectNotFound, "id %s", proj.ID)
		}
		return nil, fmt.Errorf("creating logbook entry: %w", err)
	}

	s.record(ctx, caller, entry, activity.TypeLogbookCreated, "logged "+entry.Activity)
	return entry, nil
}

// Get fetches an entry by ID.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrEntryNotFound, "id %s", id)
		}
		return nil, fmt.Errorf("getting logbook entry: %w", err)
	}
	return entry, nil
}

// List lists a project's entries. An empty projectID means the caller's
// current project.
func (s *Service) List(ctx context.Context, caller user.Identity, projectID string, params map[string]string) ([]Entry, error) {
	desc, err := query.TranslateMap(params, Schema)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		proj, err := s.ResolveCurrentProject(ctx, caller)
		if err != nil {
			return nil, err
		}
		projectID = proj.ID
	}
	entries, err := s.repo.List(ctx, desc.Where(query.Clause{Field: "project_id", Op: query.OpEq, Value: projectID}))
	if err != nil {
		return nil, fmt.Errorf("listing logbook entries: %w", err)
	}
	return entries, nil
}

// UpdateRequest defines the mutable entry fields. New attachments are
// appended to the existing ones.
type UpdateRequest struct {
	ID          string
	Date        *string
	Activity    *string
	TimeSpent   *int
	Attachments []attachment.File
}

// Update edits an entry of the caller's current project. Only the chairman
// and members may edit; the teacher validates instead.
func (s *Service) Update(ctx context.Context, caller user.Identity, req UpdateRequest) (*Entry, error) {
	entry, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	current, err := s.ResolveCurrentProject(ctx, caller)
	if err != nil {
		return nil, err
	}
	if current.ID != entry.ProjectID {
		return nil, ErrNotCurrentProject
	}
	if !current.IsMember(caller.UserID) {
		return nil, ErrNotProjectMember
	}

	var date time.Time
	if req.Date != nil {
		if date, err = parseDate(*req.Date); err != nil {
			return nil, err
		}
	}
	var text string
	if req.Activity != nil {
		text = strings.TrimSpace(*req.Activity)
		if text == "" {
			return nil, shared.Detail(ErrInvalidInput, "activity cannot be empty")
		}
	}
	if req.TimeSpent != nil && *req.TimeSpent <= 0 {
		return nil, shared.Detail(ErrInvalidInput, "time must be a positive number of minutes")
	}

	var added []string
	if len(req.Attachments) > 0 {
		added, err = s.attachments.Save(ctx, req.Attachments, attachment.LogbookPolicy)
		if err != nil {
			return nil, err
		}
	}

	entry, err = s.mutate(ctx, entry, func(e *Entry) error {
		if req.Date != nil {
			e.Date = date
		}
		if req.Activity != nil {
			e.Activity = text
		}
		if req.TimeSpent != nil {
			e.TimeSpent = *req.TimeSpent
		}
		e.Attachments = append(e.Attachments, added...)
		return nil
	})
	if err != nil {
		s.attachments.Release(ctx, added...)
		return nil, err
	}

	s.record(ctx, caller, entry, activity.TypeLogbookUpdated, "updated "+entry.Activity)
	return entry, nil
}

// Validate marks an entry valid. Only the project's teacher may do so and the
// flag never returns to false; validating twice is a no-op.
func (s *Service) Validate(ctx context.Context, caller user.Identity, id string) (*Entry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	proj, err := s.projects.Get(ctx, entry.ProjectID)
	if err != nil {
		return nil, err
	}
	if !proj.IsTeacher(caller.UserID) {
		return nil, ErrNotTeacher
	}
	if entry.Valid {
		return entry, nil
	}

	if err := s.repo.MarkValid(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrEntryNotFound, "id %s", id)
		}
		return nil, fmt.Errorf("validating logbook entry: %w", err)
	}
	entry.Valid = true

	s.record(ctx, caller, entry, activity.TypeLogbookValidated, "validated "+entry.Activity)
	return entry, nil
}

// Delete removes an entry and releases its attachments.
func (s *Service) Delete(ctx context.Context, caller user.Identity, id string) error {
	entry, err := s.memberEntry(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return shared.Detail(ErrEntryNotFound, "id %s", id)
		}
		return fmt.Errorf("deleting logbook entry: %w", err)
	}

	s.attachments.Release(ctx, entry.Attachments...)
	s.record(ctx, caller, entry, activity.TypeLogbookDeleted, "deleted "+entry.Activity)
	return nil
}

// DeleteAttachments removes the named attachments. Every name is checked
// first; if any is missing nothing is removed and the error names them all.
func (s *Service) DeleteAttachments(ctx context.Context, caller user.Identity, id string, names []string) (*Entry, error) {
	if len(names) == 0 {
		return nil, shared.Detail(ErrInvalidInput, "no attachment named")
	}
	entry, err := s.memberEntry(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	var removed []string
	entry, err = s.mutate(ctx, entry, func(e *Entry) error {
		var missing []string
		for _, name := range names {
			if !slices.Contains(e.Attachments, name) && !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return shared.Detail(ErrAttachmentNotFound, "%s", strings.Join(missing, ", "))
		}

		removed = make([]string, 0, len(names))
		kept := make([]string, 0, len(e.Attachments))
		for _, h := range e.Attachments {
			if slices.Contains(names, h) {
				removed = append(removed, h)
				continue
			}
			kept = append(kept, h)
		}
		e.Attachments = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.attachments.Release(ctx, removed...)
	s.record(ctx, caller, entry, activity.TypeLogbookUpdated, fmt.Sprintf("removed %d attachment(s)", len(removed)))
	return entry, nil
}

// mutate applies fn to entry and writes it under the version it was read at.
// When another write got in first the entry is reloaded and fn runs again, so
// fn must derive everything from the entry it is given.
func (s *Service) mutate(ctx context.Context, entry *Entry, fn func(e *Entry) error) (*Entry, error) {
	for attempt := 1; ; attempt++ {
		if err := fn(entry); err != nil {
			return nil, err
		}
		entry.UpdatedAt = time.Now().UTC()

		err := s.repo.Update(ctx, entry, entry.Version)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, shared.Detail(ErrEntryNotFound, "id %s", entry.ID)
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("updating logbook entry: %w", err)
		}
		if attempt >= maxUpdateAttempts {
			return nil, ErrEditConflict
		}
		s.logger.Debug("logbook version moved, retrying", "logbook_id", entry.ID, "attempt", attempt)

		if entry, err = s.Get(ctx, entry.ID); err != nil {
			return nil, err
		}
	}
}

func (s *Service) targetProject(ctx context.Context, caller user.Identity, projectID string) (*project.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return s.ResolveCurrentProject(ctx, caller)
	}
	return s.projects.Get(ctx, projectID)
}

func (s *Service) memberEntry(ctx context.Context, caller user.Identity, id string) (*Entry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	proj, err := s.projects.Get(ctx, entry.ProjectID)
	if err != nil {
		return nil, err
	}
	if !proj.IsMember(caller.UserID) {
		return nil, ErrNotProjectMember
	}
	return entry, nil
}

func (s *Service) record(ctx context.Context, caller user.Identity, entry *Entry, typ activity.ActivityType, summary string) {
	if s.activity == nil {
		return
	}
	id := entry.ID
	s.activity.Record(ctx, &activity.ActivityEntry{
		ProjectID:    entry.ProjectID,
		ActorID:      caller.UserID,
		LogbookID:    &id,
		ActivityType: typ,
		Summary:      summary,
	})
}

func parseDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, shared.Detail(ErrInvalidInput, "date is required")
	}
	date, err := query.ParseTime(raw)
	if err != nil {
		return time.Time{}, shared.Detail(ErrInvalidInput, "%v", err)
	}
	return date, nil
}
