package logbook

import "github.com/rpggio/teamwork/internal/domain/shared"

var (
	// ErrEntryNotFound indicates the logbook entry doesn't exist.
	ErrEntryNotFound = shared.New("logbook", shared.ErrNotFound, "logbook entry not found")
	// ErrInvalidInput indicates missing or malformed entry fields.
	ErrInvalidInput = shared.New("logbook", shared.ErrValidation, "invalid logbook input")
	// ErrNoAttachments indicates an entry created without files.
	ErrNoAttachments = shared.New("logbook", shared.ErrValidation, "at least one attachment is required")
	// ErrNoActiveProject indicates the caller has no current project.
	ErrNoActiveProject = shared.New("logbook", shared.ErrNotFound, "no active project")
	// ErrAmbiguousActiveProject indicates more than one current project matched.
	ErrAmbiguousActiveProject = shared.New("logbook", shared.ErrConflict, "more than one active project")
	// ErrProjectInactive indicates logging against a project that is not active.
	ErrProjectInactive = shared.New("logbook", shared.ErrValidation, "project is not active")
	// ErrNotProjectMember indicates the caller is not on the project's team.
	ErrNotProjectMember = shared.New("logbook", shared.ErrForbidden, "not a member of this project")
	// ErrNotCurrentProject indicates the entry belongs to another project than the caller's current one.
	ErrNotCurrentProject = shared.New("logbook", shared.ErrForbidden, "this logbook entry is not in your current project")
	// ErrNotTeacher indicates a validation attempt by someone other than the project's teacher.
	ErrNotTeacher = shared.New("logbook", shared.ErrForbidden, "only the project teacher may validate logbook entries")
	// ErrEditConflict indicates the entry kept changing underneath an edit.
	ErrEditConflict = shared.New("logbook", shared.ErrConflict, "logbook entry changed concurrently, retry")
	// ErrAttachmentNotFound indicates a named attachment absent from the entry.
	ErrAttachmentNotFound = shared.New("logbook", shared.ErrNotFound, "attachment not found on entry")
)
