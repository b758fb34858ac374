package reaction

import "time"

// Kind names a reaction variant.
type Kind string

const (
	KindLike     Kind = "like"
	KindBookmark Kind = "bookmark"
	KindComment  Kind = "comment"
)

// Kinds lists every reaction kind.
var Kinds = []Kind{KindLike, KindBookmark, KindComment}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindLike || k == KindBookmark || k == KindComment
}

// Unique reports whether a user may hold at most one reaction of this kind
// per project.
func (k Kind) Unique() bool {
	return k == KindLike || k == KindBookmark
}

// Reaction is a like, bookmark or comment on a project.
type Reaction struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType says what happened to a reaction.
type EventType string

const (
	EventCreated EventType = "created"
	EventDeleted EventType = "deleted"
)

// Event is published after a reaction write has committed.
type Event struct {
	Type       EventType
	Kind       Kind
	ProjectID  string
	UserID     string
	ReactionID string
}
