package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
)

// Ensure SeedStore implements the interface.
var _ driven.SeedStore = (*SeedStore)(nil)

// SeedStore is an in-memory implementation of driven.SeedStore with
// optimistic concurrency and a local change feed.
type SeedStore struct {
	mu    sync.RWMutex
	seeds map[string]domain.Seed

	// seq is the local update sequence. localSeq records, per id, the
	// sequence of its latest local edit; replica writes do not appear.
	seq      int64
	localSeq map[string]int64
}

// NewSeedStore creates an empty in-memory seed store.
func NewSeedStore() *SeedStore {
	return &SeedStore{
		seeds:    make(map[string]domain.Seed),
		localSeq: make(map[string]int64),
	}
}

// Get retrieves a Seed by id.
func (s *SeedStore) Get(_ context.Context, id string) (*domain.Seed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seed, ok := s.seeds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &seed, nil
}

// GetMany retrieves Seeds by id, preserving input order and skipping
// missing ids.
func (s *SeedStore) GetMany(_ context.Context, ids []string) ([]domain.Seed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Seed, 0, len(ids))
	for _, id := range ids {
		if seed, ok := s.seeds[id]; ok {
			result = append(result, seed)
		}
	}
	return result, nil
}

// Put writes a single Seed with a revision check, allocating the id
// on first write and a new revision on every write.
func (s *SeedStore) Put(_ context.Context, seed domain.Seed) (*domain.Seed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putLocked(&seed); err != nil {
		return nil, err
	}
	return &seed, nil
}

// BulkPut writes a batch. See driven.SeedStore for the
// preserveRevisions contract.
func (s *SeedStore) BulkPut(_ context.Context, seeds []domain.Seed, preserveRevisions bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if preserveRevisions {
		for _, seed := range seeds {
			// Replica copy: keyed by id, revision kept verbatim,
			// absent from the local change feed.
			s.seeds[seed.ID] = seed
		}
		return nil
	}

	var failed []string
	conflicted := false
	for i := range seeds {
		seed := seeds[i]
		if err := s.putLocked(&seed); err != nil {
			failed = append(failed, seed.ID)
			if errors.Is(err, domain.ErrRevisionConflict) {
				conflicted = true
			}
		}
	}
	return bulkPartialError(failed, conflicted)
}

// AllIDs returns every stored document id.
func (s *SeedStore) AllIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.seeds))
	for id := range s.seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of stored documents.
func (s *SeedStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seeds), nil
}

// FindByAuthor returns the Seed authored by the given email.
func (s *SeedStore) FindByAuthor(_ context.Context, email string) (*domain.Seed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.seeds {
		seed := s.seeds[id]
		if seed.Author == email {
			return &seed, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Changes returns local edits after the since sequence, in sequence
// order.
func (s *SeedStore) Changes(_ context.Context, since int64, limit int) ([]domain.Change, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []domain.Change
	for id, seq := range s.localSeq {
		if seq <= since {
			continue
		}
		entries = append(entries, domain.Change{Seed: s.seeds[id], Seq: seq})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	lastSeq := since
	if len(entries) > 0 {
		lastSeq = entries[len(entries)-1].Seq
	}
	return entries, lastSeq, nil
}

// putLocked performs a revision-checked write and records it in the
// local change feed. Caller holds the write lock.
func (s *SeedStore) putLocked(seed *domain.Seed) error {
	if seed.ID == "" {
		seed.ID = newID()
	}

	stored, exists := s.seeds[seed.ID]
	switch {
	case !exists:
		if !seed.IsNew() {
			return domain.ErrNotFound
		}
		seed.Revision = nextRevision("")
	case stored.Revision != seed.Revision:
		return domain.ErrRevisionConflict
	default:
		seed.Revision = nextRevision(stored.Revision)
	}

	s.seq++
	s.seeds[seed.ID] = *seed
	s.localSeq[seed.ID] = s.seq
	return nil
}

// bulkPartialError builds the partial-failure error for a bulk write.
// Conflicting documents keep their conflict identity so callers can
// recheck instead of degrading.
func bulkPartialError(failed []string, conflicted bool) error {
	if len(failed) == 0 {
		return nil
	}
	if conflicted {
		return fmt.Errorf("%w: %w: %s", domain.ErrBulkWritePartial, domain.ErrRevisionConflict, strings.Join(failed, ", "))
	}
	return fmt.Errorf("%w: %s", domain.ErrBulkWritePartial, strings.Join(failed, ", "))
}

// newID allocates a store id: a uuid without dashes, matching the id
// shape of upstream documents.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// nextRevision bumps an "<n>-<hash>" revision token.
func nextRevision(current string) string {
	n := 0
	if current != "" {
		if idx := strings.IndexByte(current, '-'); idx > 0 {
			n, _ = strconv.Atoi(current[:idx])
		}
	}
	return fmt.Sprintf("%d-%s", n+1, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
