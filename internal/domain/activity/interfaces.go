package activity

import "context"

// Repository provides persistence operations for activity entries.
type Repository interface {
	Log(ctx context.Context, entry *ActivityEntry) error
	List(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error)
}

// Recorder is what other services use to append to the trail.
type Recorder interface {
	Record(ctx context.Context, entry *ActivityEntry)
}
