package project

import "github.com/rpggio/teamwork/internal/domain/shared"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = shared.New("project", shared.ErrNotFound, "project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = shared.New("project", shared.ErrValidation, "invalid project input")
	// ErrStudentsOnly indicates the operation requires a student caller.
	ErrStudentsOnly = shared.New("project", shared.ErrForbidden, "only students may do this")
	// ErrNotChairman indicates the caller does not own the project.
	ErrNotChairman = shared.New("project", shared.ErrForbidden, "only the project chairman may do this")
	// ErrNotTeacher indicates the caller is not the project's mentor.
	ErrNotTeacher = shared.New("project", shared.ErrForbidden, "only the project teacher may do this")
	// ErrActiveProjectExists indicates the caller already has an active project.
	ErrActiveProjectExists = shared.New("project", shared.ErrConflict, "an active project already exists")
	// ErrMemberBusy indicates a team member already works on another active project.
	ErrMemberBusy = shared.New("project", shared.ErrConflict, "a member already works on another active project")
	// ErrVersionConflict indicates the project changed since it was read.
	ErrVersionConflict = shared.New("project", shared.ErrConflict, "project was modified concurrently")
	// ErrNotFinished indicates results have not been submitted yet.
	ErrNotFinished = shared.New("project", shared.ErrValidation, "project is not finished")
	// ErrNoResults indicates an upload without any file.
	ErrNoResults = shared.New("project", shared.ErrValidation, "at least one result file is required")
)
