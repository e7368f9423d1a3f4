package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
	"github.com/apidae-tourisme/seedsync/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexRebuilder = (*Indexer)(nil)

// MinRebuildInterval is the minimum time between two index rebuilds.
// A rebuild is a full corpus scan and must not compete for device
// resources on every minor change burst.
const MinRebuildInterval = 60 * time.Second

// Indexer owns the search index for one user session and rebuilds it
// wholesale from the visible subset of the local store. There is no
// process-wide index: an Indexer is constructed per session and torn
// down on logout.
type Indexer struct {
	store  driven.SeedStore
	engine driven.SearchEngine

	// credentials yields the session user for the corpus visibility
	// filter. Resolving through the same provider as the replicator
	// keeps the two filters evaluating the identical predicate.
	credentials driven.CredentialsProvider

	// limiter enforces the minimum rebuild interval. One token,
	// refilled at the interval rate, so the first rebuild always runs.
	limiter *rate.Limiter
	now     func() time.Time

	mu         sync.Mutex
	rebuilding bool

	// onReady, if set, is called after every completed rebuild.
	onReady func()
}

// NewIndexer creates an indexer for the session user yielded by the
// credentials provider. An interval of zero or less falls back to
// MinRebuildInterval.
func NewIndexer(store driven.SeedStore, engine driven.SearchEngine, credentials driven.CredentialsProvider, interval time.Duration) *Indexer {
	if interval <= 0 {
		interval = MinRebuildInterval
	}
	return &Indexer{
		store:       store,
		engine:      engine,
		credentials: credentials,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		now:         time.Now,
	}
}

// OnReady registers a callback invoked after each completed rebuild.
func (ix *Indexer) OnReady(fn func()) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.onReady = fn
}

// RebuildIfDue rebuilds the index unless a rebuild is already in
// flight or the minimum interval has not elapsed since the previous
// one. Reports whether a rebuild ran.
func (ix *Indexer) RebuildIfDue(ctx context.Context) (bool, error) {
	ix.mu.Lock()
	if ix.rebuilding {
		ix.mu.Unlock()
		logger.Debug("Reindex skipped: rebuild in flight")
		return false, nil
	}
	if !ix.limiter.AllowN(ix.now(), 1) {
		ix.mu.Unlock()
		logger.Debug("Reindex skipped: minimum interval not elapsed")
		return false, nil
	}
	ix.rebuilding = true
	ready := ix.onReady
	ix.mu.Unlock()

	defer func() {
		ix.mu.Lock()
		ix.rebuilding = false
		ix.mu.Unlock()
	}()

	if err := ix.rebuild(ctx); err != nil {
		return false, err
	}

	if ready != nil {
		ready()
	}
	return true, nil
}

// rebuild scans the local store, filters to the visible corpus and
// replaces the index.
func (ix *Indexer) rebuild(ctx context.Context) error {
	userEmail, err := ix.credentials.UserEmail(ctx)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}

	ids, err := ix.store.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("list document ids: %w", err)
	}

	docs, err := ix.store.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	// Archived and invisible documents are never indexed. Same
	// predicate as the replicator's pull filter.
	corpus := make([]domain.Seed, 0, len(docs))
	for i := range docs {
		if docs[i].VisibleTo(userEmail) {
			corpus = append(corpus, docs[i])
		}
	}

	logger.Info("Indexing %d of %d documents", len(corpus), len(docs))
	if err := ix.engine.Rebuild(ctx, corpus); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}
