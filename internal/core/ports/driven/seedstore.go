package driven

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// SeedStore is the local, on-device document store.
// Backed by SQLite for durability; an in-memory implementation exists
// for tests.
type SeedStore interface {
	// Get retrieves a Seed by id. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Seed, error)

	// GetMany retrieves the Seeds for the given ids, preserving input
	// order. Missing ids are skipped, not errors.
	GetMany(ctx context.Context, ids []string) ([]domain.Seed, error)

	// Put writes a single Seed with optimistic concurrency. A Seed
	// with an empty ID is created (the store assigns the id); a Seed
	// with an ID must carry the currently stored revision or the write
	// fails with domain.ErrRevisionConflict. The returned Seed carries
	// the newly allocated revision.
	Put(ctx context.Context, seed domain.Seed) (*domain.Seed, error)

	// BulkPut writes several Seeds in one batch. With preserveRevisions
	// the documents are applied verbatim as replica copies: no new
	// revision is allocated and the writes do not appear in the local
	// change feed. Without it each write is revision-checked like Put;
	// failing documents are skipped and the batch returns an error
	// wrapping domain.ErrBulkWritePartial while the rest commit.
	BulkPut(ctx context.Context, seeds []domain.Seed, preserveRevisions bool) error

	// AllIDs returns every stored document id.
	AllIDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// FindByAuthor returns the Seed authored by the given email.
	// Returns domain.ErrNotFound if the user has no Seed.
	FindByAuthor(ctx context.Context, email string) (*domain.Seed, error)

	// Changes returns up to limit local edits with sequence greater
	// than since, in sequence order, plus the feed's current last
	// sequence. Replica writes (BulkPut with preserveRevisions) are
	// not local edits and never appear here.
	Changes(ctx context.Context, since int64, limit int) ([]domain.Change, int64, error)
}
