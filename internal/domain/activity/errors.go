package activity

import "github.com/rpggio/teamwork/internal/domain/shared"

// ErrInvalidInput indicates an unusable activity entry.
var ErrInvalidInput = shared.New("activity", shared.ErrValidation, "invalid activity entry")
