package project

import (
	"slices"
	"time"
)

// Project is a student team's piece of work, owned by its chairman.
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Topic         string    `json:"topic"`
	Description   string    `json:"description"`
	ChairmanID    string    `json:"chairman_id"`
	TeacherID     string    `json:"teacher_id,omitempty"`
	Members       []string  `json:"members"`
	Active        bool      `json:"active"`
	Finished      bool      `json:"finished"`
	Published     bool      `json:"published"`
	Results       []string  `json:"results"`
	LikeCount     int       `json:"like_count"`
	BookmarkCount int       `json:"bookmark_count"`
	CommentCount  int       `json:"comment_count"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsChairman reports whether userID owns the project.
func (p *Project) IsChairman(userID string) bool {
	return p.ChairmanID == userID
}

// IsMember reports whether userID is the chairman or one of the members.
func (p *Project) IsMember(userID string) bool {
	return p.IsChairman(userID) || slices.Contains(p.Members, userID)
}

// IsTeacher reports whether userID is the assigned mentor.
func (p *Project) IsTeacher(userID string) bool {
	return p.TeacherID != "" && p.TeacherID == userID
}

// Team returns the chairman followed by the members.
func (p *Project) Team() []string {
	return append([]string{p.ChairmanID}, p.Members...)
}
