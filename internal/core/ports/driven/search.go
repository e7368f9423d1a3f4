package driven

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// SearchEngine is the full-text index over the visible corpus.
// The index is rebuilt wholesale, never incrementally.
type SearchEngine interface {
	// Rebuild replaces the index with one built from the given corpus.
	// The corpus must already be filtered to visible documents.
	Rebuild(ctx context.Context, corpus []domain.Seed) error

	// Search tokenizes the query with the index's own normalizer and
	// returns matching document ids ranked by cumulative score.
	Search(ctx context.Context, query string) ([]SearchHit, error)

	// Ready reports whether at least one rebuild has completed.
	Ready() bool
}

// SearchHit is one ranked match from the engine.
type SearchHit struct {
	// SeedID is the matched document.
	SeedID string

	// Score is the cumulative relevance score.
	Score float64
}
