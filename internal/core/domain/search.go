package domain

// SearchResult is a single search hit, already resolved back to its
// full document.
type SearchResult struct {
	// Seed is the matched document.
	Seed Seed

	// Score is the cumulative relevance score across query terms and
	// match strategies.
	Score float64
}
