// Package engagement keeps the like, bookmark and comment counters on
// projects in line with the reactions that exist.
//
// Counters are always recomputed from the reaction rows, never incremented,
// so every recompute is idempotent and the next one repairs any drift.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/teamwork/internal/domain/reaction"
	"github.com/rpggio/teamwork/internal/domain/shared"
)

// Counter recounts reactions and writes the result onto the project.
type Counter interface {
	// Recount sets the project's counter for kind to the current number of
	// reactions of that kind and returns the stored value.
	Recount(ctx context.Context, projectID string, kind reaction.Kind) (int, error)
	// ProjectIDs lists every project id.
	ProjectIDs(ctx context.Context) ([]string, error)
}

// Ledger consumes reaction events.
type Ledger struct {
	counter Counter
	logger  *slog.Logger
}

// NewLedger creates a ledger.
func NewLedger(counter Counter, logger *slog.Logger) *Ledger {
	return &Ledger{counter: counter, logger: shared.Logger(logger)}
}

// ReactionChanged implements reaction.Listener.
func (l *Ledger) ReactionChanged(ctx context.Context, event reaction.Event) {
	l.OnReactionChanged(ctx, event.Kind, event.ProjectID)
}

// OnReactionChanged recomputes one counter. Failures are logged: the reaction
// write already committed and stays.
func (l *Ledger) OnReactionChanged(ctx context.Context, kind reaction.Kind, projectID string) {
	n, err := l.counter.Recount(ctx, projectID, kind)
	if err != nil {
		l.logger.Warn("engagement counter not updated",
			"project_id", projectID,
			"kind", kind,
			"error", err,
		)
		return
	}
	l.logger.Debug("engagement counter updated", "project_id", projectID, "kind", kind, "count", n)
}

// Reconcile recomputes all counters of one project.
func (l *Ledger) Reconcile(ctx context.Context, projectID string) error {
	var errs []error
	for _, kind := range reaction.Kinds {
		if _, err := l.counter.Recount(ctx, projectID, kind); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// ReconcileAll recomputes every counter of every project and returns how
// many projects were reconciled without error.
func (l *Ledger) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := l.counter.ProjectIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing projects: %w", err)
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := l.Reconcile(ctx, id); err != nil {
			l.logger.Warn("project counters not reconciled", "project_id", id, "error", err)
			continue
		}
		done++
	}
	return done, nil
}
