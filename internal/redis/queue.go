// Package redis keeps the attachment cleanup queue in Redis so that several
// server processes sharing one blob directory drain a single queue.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rpggio/teamwork/internal/attachment"
)

var _ attachment.Queue = (*Queue)(nil)

// ErrConnection is returned when Redis can't be reached at startup.
var ErrConnection = errors.New("redis: connection failed")

// Config holds connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// Queue is an attachment.Queue backed by a sorted set of handles scored by
// due time, plus a hash of attempt counts.
type Queue struct {
	client   *redis.Client
	due      string
	attempts string
}

// Open connects to Redis and returns a queue using cfg.KeyPrefix.
func Open(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return NewQueue(client, cfg.KeyPrefix), nil
}

// NewQueue wraps an existing client.
func NewQueue(client *redis.Client, prefix string) *Queue {
	if prefix == "" {
		prefix = "teamwork"
	}
	return &Queue{
		client:   client,
		due:      prefix + ":blob_cleanup:due",
		attempts: prefix + ":blob_cleanup:attempts",
	}
}

// Close closes the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}

// Enqueue adds handles due at due. Handles already queued keep their schedule.
func (q *Queue) Enqueue(ctx context.Context, handles []string, due time.Time) error {
	if len(handles) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(handles))
	for _, h := range handles {
		members = append(members, redis.Z{Score: score(due), Member: h})
	}
	if err := q.client.ZAddNX(ctx, q.due, members...).Err(); err != nil {
		return fmt.Errorf("enqueue cleanup: %w", err)
	}
	return nil
}

// Due returns up to limit handles whose time has come, oldest first.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int) ([]attachment.Pending, error) {
	zs, err := q.client.ZRangeByScoreWithScores(ctx, q.due, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(score(now), 'f', -1, 64),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due handles: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	handles := make([]string, len(zs))
	for i, z := range zs {
		handles[i], _ = z.Member.(string)
	}
	counts, err := q.client.HMGet(ctx, q.attempts, handles...).Result()
	if err != nil {
		return nil, fmt.Errorf("load attempt counts: %w", err)
	}

	pending := make([]attachment.Pending, len(handles))
	for i, h := range handles {
		pending[i] = attachment.Pending{Handle: h}
		if s, ok := counts[i].(string); ok {
			pending[i].Attempts, _ = strconv.Atoi(s)
		}
	}
	return pending, nil
}

// Retry reschedules handle after a failed delete.
func (q *Queue) Retry(ctx context.Context, handle string, attempts int, due time.Time) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddXX(ctx, q.due, redis.Z{Score: score(due), Member: handle})
		pipe.HSet(ctx, q.attempts, handle, attempts)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reschedule %s: %w", handle, err)
	}
	return nil
}

// Done forgets handle.
func (q *Queue) Done(ctx context.Context, handle string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.due, handle)
		pipe.HDel(ctx, q.attempts, handle)
		return nil
	})
	if err != nil {
		return fmt.Errorf("drop %s: %w", handle, err)
	}
	return nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
