package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apidae-tourisme/seedsync/internal/adapters/driven/storage/memory"
	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// flakySeedStore wraps the memory store and fails non-preserving bulk
// writes on demand, simulating a peer-update failure.
type flakySeedStore struct {
	*memory.SeedStore
	failBulk bool
}

func (s *flakySeedStore) BulkPut(ctx context.Context, seeds []domain.Seed, preserveRevisions bool) error {
	if s.failBulk && !preserveRevisions {
		return domain.ErrBulkWritePartial
	}
	return s.SeedStore.BulkPut(ctx, seeds, preserveRevisions)
}

func TestSeedService_Save_PeerFailureIsDegradedSuccess(t *testing.T) {
	store := &flakySeedStore{SeedStore: memory.NewSeedStore()}
	svc := NewSeedService(store)
	ctx := context.Background()

	peer, err := svc.Save(ctx, domain.Seed{Name: "Peer"})
	require.NoError(t, err)

	store.failBulk = true
	res, err := svc.Save(ctx, domain.Seed{Name: "Root", Connections: []string{peer.ID}})

	// The target document committed; the result is a degraded
	// success, distinguishable from both full success and failure.
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBulkWritePartial)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.OK)

	saved, getErr := store.Get(ctx, res.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "Root", saved.Name)
	assert.True(t, saved.HasConnection(peer.ID))
}

func TestSeedService_Save_PeerConflictResolvedConcurrently(t *testing.T) {
	store := &conflictOnceStore{SeedStore: memory.NewSeedStore()}
	svc := NewSeedService(store)
	ctx := context.Background()

	peer, err := svc.Save(ctx, domain.Seed{Name: "Peer"})
	require.NoError(t, err)

	// The first peer bulk write conflicts; by reload time the other
	// writer has already added the reverse entry, so the save settles
	// as a full success.
	store.conflictNext = true
	store.onConflict = func() {
		seed, err := store.SeedStore.Get(ctx, peer.ID)
		require.NoError(t, err)
		seed.AddConnection(store.lastTargetID)
		_, err = store.SeedStore.Put(ctx, *seed)
		require.NoError(t, err)
	}

	res, err := svc.Save(ctx, domain.Seed{Name: "Root", Connections: []string{peer.ID}})
	require.NoError(t, err)
	assert.True(t, res.OK)

	got, err := store.Get(ctx, peer.ID)
	require.NoError(t, err)
	assert.True(t, got.HasConnection(res.ID))
}

// staleReadStore delegates to the memory store but lets a concurrent
// writer slip in right after the first non-empty read, so the peer
// documents this save carries into its bulk write hold stale revisions.
type staleReadStore struct {
	*memory.SeedStore
	raceOnce func()
}

func (s *staleReadStore) GetMany(ctx context.Context, ids []string) ([]domain.Seed, error) {
	seeds, err := s.SeedStore.GetMany(ctx, ids)
	if s.raceOnce != nil && len(ids) > 0 {
		race := s.raceOnce
		s.raceOnce = nil
		race()
	}
	return seeds, err
}

func TestSeedService_Save_ConcurrentPeerEditRecheckedNotDegraded(t *testing.T) {
	base := memory.NewSeedStore()
	store := &staleReadStore{SeedStore: base}
	svc := NewSeedService(store)
	ctx := context.Background()

	peer, err := svc.Save(ctx, domain.Seed{Name: "Peer"})
	require.NoError(t, err)

	// Another device renames the peer between this save's read and its
	// peer bulk write, so the bulk write hits a real revision conflict
	// in the store.
	store.raceOnce = func() {
		fresh, err := base.Get(ctx, peer.ID)
		require.NoError(t, err)
		fresh.Name = "Peer, renamed elsewhere"
		_, err = base.Put(ctx, *fresh)
		require.NoError(t, err)
	}

	res, err := svc.Save(ctx, domain.Seed{Name: "Root", Connections: []string{peer.ID}})
	require.NoError(t, err)
	assert.True(t, res.OK)

	// The recheck retried against the fresh revision: the reverse edge
	// exists and the concurrent rename survived.
	got, err := base.Get(ctx, peer.ID)
	require.NoError(t, err)
	assert.True(t, got.HasConnection(res.ID))
	assert.Equal(t, "Peer, renamed elsewhere", got.Name)
}

// conflictOnceStore fails the first non-preserving bulk write with a
// revision conflict, invoking onConflict to emulate the concurrent
// writer that caused it.
type conflictOnceStore struct {
	*memory.SeedStore
	conflictNext bool
	onConflict   func()
	lastTargetID string
}

func (s *conflictOnceStore) Put(ctx context.Context, seed domain.Seed) (*domain.Seed, error) {
	saved, err := s.SeedStore.Put(ctx, seed)
	if err == nil {
		s.lastTargetID = saved.ID
	}
	return saved, err
}

func (s *conflictOnceStore) BulkPut(ctx context.Context, seeds []domain.Seed, preserveRevisions bool) error {
	if s.conflictNext && !preserveRevisions {
		s.conflictNext = false
		if s.onConflict != nil {
			s.onConflict()
		}
		return domain.ErrRevisionConflict
	}
	return s.SeedStore.BulkPut(ctx, seeds, preserveRevisions)
}
