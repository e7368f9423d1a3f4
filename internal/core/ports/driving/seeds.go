package driving

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// SaveResult is the outcome of a Save. OK is false for a degraded
// success: the target document committed but one or more peer
// connection repairs failed and will be healed by a later save.
type SaveResult struct {
	// ID is the id of the saved document.
	ID string

	// OK reports full success including all peer updates.
	OK bool
}

// Edge is a rendered connection between two Seeds.
type Edge struct {
	// Source and Target are document ids.
	Source string
	Target string
}

// NodeData is the neighbourhood of a root Seed, shaped for the
// external graph renderer.
type NodeData struct {
	// Count is the total number of documents in the local store.
	Count int

	// Nodes holds the root Seed first, then its connected Seeds.
	Nodes []domain.Seed

	// Edges links each connected Seed to the root.
	Edges []Edge
}

// SeedService is the save/read surface of the connection graph.
// Save enforces the edge-symmetry invariant: no document is left with
// a one-sided connection as a terminal state.
type SeedService interface {
	// Save creates or updates a Seed, then repairs the remote end of
	// every added or removed connection. A peer bulk-write failure
	// yields a degraded success (OK false) together with the error;
	// the target document itself is never rolled back.
	Save(ctx context.Context, seed domain.Seed) (SaveResult, error)

	// Get retrieves a Seed by id.
	Get(ctx context.Context, id string) (*domain.Seed, error)

	// NodeData resolves a root Seed and its connections into nodes and
	// edges for the renderer.
	NodeData(ctx context.Context, rootID string) (*NodeData, error)

	// UserSeed returns the Seed authored by the given user.
	UserSeed(ctx context.Context, email string) (*domain.Seed, error)
}
