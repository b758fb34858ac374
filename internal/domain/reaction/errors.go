package reaction

import "github.com/rpggio/teamwork/internal/domain/shared"

var (
	// ErrDuplicateReaction indicates the user already liked or bookmarked the project.
	ErrDuplicateReaction = shared.New("reaction", shared.ErrConflict, "reaction already exists")
	// ErrReactionNotFound indicates there is nothing to remove.
	ErrReactionNotFound = shared.New("reaction", shared.ErrNotFound, "reaction not found")
	// ErrProjectNotFound indicates the reacted-to project doesn't exist.
	ErrProjectNotFound = shared.New("reaction", shared.ErrNotFound, "project not found")
	// ErrInvalidInput indicates an empty comment or unknown kind.
	ErrInvalidInput = shared.New("reaction", shared.ErrValidation, "invalid reaction input")
	// ErrNotCommentOwner indicates the caller may not delete the comment.
	ErrNotCommentOwner = shared.New("reaction", shared.ErrForbidden, "only the author or the project chairman may delete this comment")
)
