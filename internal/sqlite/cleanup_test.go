package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupQueue(t *testing.T) {
	db := NewTestDB(t)
	q := NewCleanupQueue(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Enqueue(ctx, []string{"a.png", "b.png"}, now))
	require.NoError(t, q.Enqueue(ctx, []string{"c.png"}, now.Add(time.Hour)))
	// Re-enqueueing keeps the first schedule.
	require.NoError(t, q.Enqueue(ctx, []string{"a.png"}, now.Add(time.Hour)))

	due, err := q.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "a.png", due[0].Handle)
	require.Zero(t, due[0].Attempts)

	require.NoError(t, q.Retry(ctx, "a.png", 1, now.Add(time.Minute)))
	require.NoError(t, q.Done(ctx, "b.png"))

	due, err = q.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = q.Due(ctx, now.Add(2*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "a.png", due[0].Handle)
	require.Equal(t, 1, due[0].Attempts)
}
