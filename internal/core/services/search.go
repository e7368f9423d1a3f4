package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
	"github.com/apidae-tourisme/seedsync/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService answers queries against the session index and
// resolves hits back to full documents. It never blocks on
// replication: it only reads the local store and the current index.
type SearchService struct {
	store  driven.SeedStore
	engine driven.SearchEngine
}

// NewSearchService creates a search service.
func NewSearchService(store driven.SeedStore, engine driven.SearchEngine) *SearchService {
	return &SearchService{store: store, engine: engine}
}

// Search runs the query against the index, hydrates the hit ids into
// Seeds and applies the caller's scope filter. domain.ScopeAll keeps
// every scope.
func (s *SearchService) Search(ctx context.Context, query string, scope domain.Scope) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	logger.Debug("Search: %q (scope %s)", query, scope)

	hits, err := s.engine.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, hit := range hits {
		ids[i] = hit.SeedID
		scores[hit.SeedID] = hit.Score
	}

	seeds, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(seeds))
	for i := range seeds {
		if scope != domain.ScopeAll && seeds[i].Scope != scope {
			continue
		}
		results = append(results, domain.SearchResult{
			Seed:  seeds[i],
			Score: scores[seeds[i].ID],
		})
	}

	logger.Debug("Search: %d hits, %d after scope filter", len(hits), len(results))
	return results, nil
}
