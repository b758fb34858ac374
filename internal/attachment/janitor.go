package attachment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rpggio/teamwork/internal/domain/shared"
)

// Pending is a queued handle awaiting deletion.
type Pending struct {
	Handle   string
	Attempts int
}

// Queue persists handles scheduled for deletion.
type Queue interface {
	// Enqueue schedules handles at due. Handles already queued keep their
	// schedule and attempt count.
	Enqueue(ctx context.Context, handles []string, due time.Time) error
	// Due returns up to limit handles scheduled at or before now.
	Due(ctx context.Context, now time.Time, limit int) ([]Pending, error)
	// Retry reschedules handle with its new attempt count.
	Retry(ctx context.Context, handle string, attempts int, due time.Time) error
	// Done removes handle from the queue.
	Done(ctx context.Context, handle string) error
}

// JanitorConfig tunes the cleanup loop.
type JanitorConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Backoff     time.Duration
	BatchSize   int
}

// DefaultJanitorConfig returns the defaults used when config leaves values unset.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval:    time.Minute,
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		BatchSize:   100,
	}
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Deleted int
	Retried int
	Dropped int
}

// Janitor deletes released blobs off the request path.
type Janitor struct {
	store  Store
	queue  Queue
	config JanitorConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewJanitor creates a janitor. Zero config values fall back to the defaults.
func NewJanitor(store Store, queue Queue, config JanitorConfig, logger *slog.Logger) *Janitor {
	defaults := DefaultJanitorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.Backoff <= 0 {
		config.Backoff = defaults.Backoff
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Janitor{
		store:  store,
		queue:  queue,
		config: config,
		logger: shared.Logger(logger),
		now:    time.Now,
	}
}

// Release queues handles for deletion. If the queue itself is unavailable
// the blobs are deleted inline; failures are logged, never returned.
func (j *Janitor) Release(ctx context.Context, handles ...string) {
	var queued []string
	for _, h := range handles {
		if h != "" {
			queued = append(queued, h)
		}
	}
	if len(queued) == 0 {
		return
	}

	err := j.queue.Enqueue(ctx, queued, j.now())
	if err == nil {
		return
	}
	j.logger.Warn("cleanup queue unavailable, deleting inline", "count", len(queued), "error", err)
	for _, h := range queued {
		if derr := j.store.Delete(ctx, h); derr != nil && !errors.Is(derr, ErrBlobNotFound) {
			j.logger.Error("attachment leaked", "handle", h, "error", derr)
		}
	}
}

// Sweep processes every handle that is due.
func (j *Janitor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	for {
		now := j.now()
		due, err := j.queue.Due(ctx, now, j.config.BatchSize)
		if err != nil {
			return result, err
		}
		if len(due) == 0 {
			return result, nil
		}

		progressed := false
		for _, p := range due {
			outcome, err := j.process(ctx, p, now)
			if err != nil {
				return result, err
			}
			switch outcome {
			case outcomeDeleted:
				result.Deleted++
				progressed = true
			case outcomeDropped:
				result.Dropped++
				progressed = true
			case outcomeRetried:
				result.Retried++
			}
		}
		// Retried handles move into the future; stop once a batch only retried.
		if !progressed || len(due) < j.config.BatchSize {
			return result, nil
		}
	}
}

type outcome int

const (
	outcomeDeleted outcome = iota
	outcomeRetried
	outcomeDropped
)

func (j *Janitor) process(ctx context.Context, p Pending, now time.Time) (outcome, error) {
	err := j.store.Delete(ctx, p.Handle)
	if err == nil || errors.Is(err, ErrBlobNotFound) || errors.Is(err, ErrInvalidHandle) {
		return outcomeDeleted, j.queue.Done(ctx, p.Handle)
	}

	attempts := p.Attempts + 1
	if attempts >= j.config.MaxAttempts {
		j.logger.Error("attachment cleanup exhausted, dropping handle",
			"handle", p.Handle,
			"attempts", attempts,
			"error", err,
		)
		return outcomeDropped, j.queue.Done(ctx, p.Handle)
	}

	delay := j.config.Backoff << min(attempts-1, 10)
	j.logger.Warn("attachment cleanup failed, retrying",
		"handle", p.Handle,
		"attempts", attempts,
		"retry_in", delay,
		"error", err,
	)
	return outcomeRetried, j.queue.Retry(ctx, p.Handle, attempts, now.Add(delay))
}

// Run sweeps immediately and then on every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		if res, err := j.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			j.logger.Error("attachment sweep failed", "error", err)
		} else if res.Deleted+res.Retried+res.Dropped > 0 {
			j.logger.Info("attachment sweep finished",
				"deleted", res.Deleted,
				"retried", res.Retried,
				"dropped", res.Dropped,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
