package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeProjectCreated   ActivityType = "project_created"
	TypeProjectActivated ActivityType = "project_activated"
	TypeProjectUpdated   ActivityType = "project_updated"
	TypeResultsUploaded  ActivityType = "results_uploaded"
	TypeProjectPublished ActivityType = "project_published"
	TypeProjectDeleted   ActivityType = "project_deleted"
	TypeLogbookCreated   ActivityType = "logbook_created"
	TypeLogbookUpdated   ActivityType = "logbook_updated"
	TypeLogbookValidated ActivityType = "logbook_validated"
	TypeLogbookDeleted   ActivityType = "logbook_deleted"
)

// ActivityEntry represents an event in a project's audit trail
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ProjectID    string       `json:"project_id"`
	ActorID      string       `json:"actor_id"`
	LogbookID    *string      `json:"logbook_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
