// Package memory provides the in-memory inverted index backing
// full-text search. The index covers the visible corpus only and is
// rebuilt wholesale on each rebuild cycle; it lives until the next
// rebuild or session teardown and is never persisted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.SearchEngine = (*Index)(nil)

// Match strategy boosts, in descending order: exact term, trailing
// wildcard (prefix), edit-distance-1 fuzzy.
const (
	boostExact  = 100.0
	boostPrefix = 10.0
	boostFuzzy  = 1.0
)

// indexedFields are the Seed text fields contributing to relevance,
// each independently.
var indexedFields = func(s *domain.Seed) []string {
	return []string{s.Name, s.Description, s.Address}
}

// Index is an inverted index keyed by normalized term.
type Index struct {
	mu sync.RWMutex

	// postings maps term -> document id -> term frequency across the
	// indexed fields.
	postings map[string]map[string]float64
	built    bool
}

// NewIndex creates an empty index. It reports not-ready until the
// first rebuild.
func NewIndex() *Index {
	return &Index{}
}

// Rebuild replaces the index contents from the given corpus. The old
// index stays queryable until the swap.
func (ix *Index) Rebuild(ctx context.Context, corpus []domain.Seed) error {
	postings := make(map[string]map[string]float64)
	for i := range corpus {
		if err := ctx.Err(); err != nil {
			return err
		}
		seed := &corpus[i]
		for _, field := range indexedFields(seed) {
			for _, term := range Tokenize(field) {
				ids, ok := postings[term]
				if !ok {
					ids = make(map[string]float64)
					postings[term] = ids
				}
				ids[seed.ID]++
			}
		}
	}

	ix.mu.Lock()
	ix.postings = postings
	ix.built = true
	ix.mu.Unlock()
	return nil
}

// Ready reports whether at least one rebuild has completed.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.built
}

// Search tokenizes the query with the index normalizer and unions
// three match strategies per term, ranking hits by cumulative score.
func (ix *Index) Search(_ context.Context, query string) ([]driven.SearchHit, error) {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[string]float64)
	for _, term := range terms {
		// Exact match in the processed form.
		for id, tf := range ix.postings[term] {
			scores[id] += tf * boostExact
		}

		// Trailing-wildcard and fuzzy matches scan the vocabulary.
		for indexed, ids := range ix.postings {
			if indexed == term {
				continue
			}
			switch {
			case strings.HasPrefix(indexed, term):
				for id, tf := range ids {
					scores[id] += tf * boostPrefix
				}
			case withinOneEdit(indexed, term):
				for id, tf := range ids {
					scores[id] += tf * boostFuzzy
				}
			}
		}
	}

	hits := make([]driven.SearchHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, driven.SearchHit{SeedID: id, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].SeedID < hits[j].SeedID
	})
	return hits, nil
}

// withinOneEdit reports whether a and b are at Levenshtein distance
// exactly one (single insertion, deletion or substitution).
func withinOneEdit(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	switch len(ra) - len(rb) {
	case 0:
		diffs := 0
		for i := range ra {
			if ra[i] != rb[i] {
				diffs++
				if diffs > 1 {
					return false
				}
			}
		}
		return diffs == 1
	case 1:
		// One insertion into the shorter string.
		i, j := 0, 0
		skipped := false
		for i < len(ra) && j < len(rb) {
			if ra[i] == rb[j] {
				i++
				j++
				continue
			}
			if skipped {
				return false
			}
			skipped = true
			i++
		}
		return true
	default:
		return false
	}
}
