package driven

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// CheckpointStore persists replication progress so a resumed session
// continues from the last acknowledged feed position.
type CheckpointStore interface {
	// Save stores or updates a checkpoint.
	Save(ctx context.Context, cp domain.Checkpoint) error

	// Get retrieves a checkpoint by name. Returns domain.ErrNotFound
	// if the session has never checkpointed.
	Get(ctx context.Context, name string) (*domain.Checkpoint, error)

	// Delete removes a checkpoint.
	Delete(ctx context.Context, name string) error
}
