package driving

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// SearchService answers full-text queries against the current index.
type SearchService interface {
	// Search tokenizes the query, runs it against the index and
	// resolves the hits back to full documents, filtered by scope
	// (domain.ScopeAll matches everything).
	Search(ctx context.Context, query string, scope domain.Scope) ([]domain.SearchResult, error)
}

// IndexRebuilder is the indexing trigger the replicator fires on each
// pause. Implementations rate-limit and serialize rebuilds.
type IndexRebuilder interface {
	// RebuildIfDue rebuilds the index unless a rebuild is in flight or
	// the minimum interval since the previous rebuild has not elapsed.
	// Reports whether a rebuild ran.
	RebuildIfDue(ctx context.Context) (bool, error)
}
