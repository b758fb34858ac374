package logbook

import "time"

// Entry is one dated activity record of a project.
type Entry struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	AuthorID    string    `json:"author_id"`
	Date        time.Time `json:"date"`
	Activity    string    `json:"activity"`
	TimeSpent   int       `json:"time"` // minutes
	Attachments []string  `json:"attachments"`
	Valid       bool      `json:"valid"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
