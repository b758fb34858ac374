package attachment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rpggio/teamwork/internal/domain/shared"
)

// SaveAll checks files against policy and stores them in order. When one Put
// fails, the blobs already stored by this call are deleted again.
func SaveAll(ctx context.Context, store Store, files []File, policy Policy) ([]string, error) {
	if err := policy.Check(files); err != nil {
		return nil, err
	}

	handles := make([]string, 0, len(files))
	for _, f := range files {
		handle, err := store.Put(ctx, f.Data, f.ContentType)
		if err != nil {
			errs := []error{err}
			for _, h := range handles {
				if derr := store.Delete(ctx, h); derr != nil && !errors.Is(derr, ErrBlobNotFound) {
					errs = append(errs, derr)
				}
			}
			return nil, errors.Join(errs...)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// Manager is the attachment facade services depend on.
type Manager struct {
	store   Store
	janitor *Janitor
	logger  *slog.Logger
}

// NewManager creates a Manager.
func NewManager(store Store, janitor *Janitor, logger *slog.Logger) *Manager {
	return &Manager{store: store, janitor: janitor, logger: shared.Logger(logger)}
}

// Save stores files under policy.
func (m *Manager) Save(ctx context.Context, files []File, policy Policy) ([]string, error) {
	handles, err := SaveAll(ctx, m.store, files, policy)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("attachments stored", "policy", policy.Name, "count", len(handles))
	return handles, nil
}

// Release hands handles to the janitor. It never fails the caller.
func (m *Manager) Release(ctx context.Context, handles ...string) {
	m.janitor.Release(ctx, handles...)
}
