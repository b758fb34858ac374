package user

import "github.com/rpggio/teamwork/internal/domain/shared"

var (
	// ErrUserNotFound indicates the user doesn't exist.
	ErrUserNotFound = shared.New("user", shared.ErrNotFound, "user not found")
	// ErrInvalidInput indicates invalid registration input.
	ErrInvalidInput = shared.New("user", shared.ErrValidation, "invalid user input")
	// ErrDuplicateUser indicates the username or email is already taken.
	ErrDuplicateUser = shared.New("user", shared.ErrConflict, "username or email already registered")
	// ErrInvalidAPIKey indicates the bearer token does not resolve to a user.
	ErrInvalidAPIKey = shared.New("user", shared.ErrForbidden, "invalid api key")
)
