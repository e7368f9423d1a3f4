package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Migrate(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestSeedStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	saved, err := seeds.Put(ctx, domain.Seed{
		Name:   "Jardin des Plantes",
		Scope:  domain.ScopePublic,
		Author: "ana@example.org",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.NotEmpty(t, saved.Revision)

	got, err := seeds.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jardin des Plantes", got.Name)
	assert.Equal(t, saved.Revision, got.Revision)
}

func TestSeedStore_GetNotFound(t *testing.T) {
	seeds := newTestStore(t).SeedStore()

	_, err := seeds.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSeedStore_PutRevisionConflict(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	saved, err := seeds.Put(ctx, domain.Seed{Name: "one", Scope: domain.ScopePublic})
	require.NoError(t, err)

	// Concurrent update wins the race.
	fresher := *saved
	_, err = seeds.Put(ctx, fresher)
	require.NoError(t, err)

	// The stale revision must now be rejected.
	stale := *saved
	stale.Name = "stale edit"
	_, err = seeds.Put(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)
}

func TestSeedStore_PutRoundTripsAllFields(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)

	saved, err := seeds.Put(ctx, domain.Seed{
		Name:        "Fête des jardins",
		Description: "Portes ouvertes",
		Address:     "12 rue des Lilas, Lyon",
		Category:    domain.CategoryEvent,
		Scope:       domain.ScopeApidae,
		Author:      "ana@example.org",
		Connections: []string{"c1", "c2"},
		Picture:     "pic-1",
		URLs:        []domain.Link{{Label: "site", URL: "https://example.org"}},
		StartDate:   &start,
		EndDate:     &end,
	})
	require.NoError(t, err)

	got, err := seeds.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryEvent, got.Category)
	assert.Equal(t, []string{"c1", "c2"}, got.Connections)
	assert.Equal(t, []domain.Link{{Label: "site", URL: "https://example.org"}}, got.URLs)
	require.NotNil(t, got.StartDate)
	assert.True(t, start.Equal(*got.StartDate))
	require.NotNil(t, got.EndDate)
	assert.True(t, end.Equal(*got.EndDate))
}

func TestSeedStore_BulkPutPreserveRevisionsSkipsChangeFeed(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	replicated := []domain.Seed{
		{ID: "r1", Revision: "4-abc", Name: "pulled one", Scope: domain.ScopePublic},
		{ID: "r2", Revision: "2-def", Name: "pulled two", Scope: domain.ScopeApidae},
	}
	require.NoError(t, seeds.BulkPut(ctx, replicated, true))

	got, err := seeds.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "4-abc", got.Revision)

	changes, lastSeq, err := seeds.Changes(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Zero(t, lastSeq)
}

func TestSeedStore_BulkPutPartialFailure(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	saved, err := seeds.Put(ctx, domain.Seed{Name: "existing", Scope: domain.ScopePublic})
	require.NoError(t, err)

	batch := []domain.Seed{
		{ID: saved.ID, Revision: "0-stale", Name: "conflicting"},
		{Name: "fresh", Scope: domain.ScopePublic},
	}
	err = seeds.BulkPut(ctx, batch, false)
	assert.ErrorIs(t, err, domain.ErrBulkWritePartial)
	// A stale-revision failure stays recognisable as a conflict, so
	// callers can reload and recheck instead of degrading.
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)

	// The non-conflicting document still committed.
	count, err := seeds.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSeedStore_ChangesOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		saved, err := seeds.Put(ctx, domain.Seed{Name: name, Scope: domain.ScopePublic})
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	changes, lastSeq, err := seeds.Changes(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, ids[0], changes[0].Seed.ID)
	assert.Equal(t, ids[1], changes[1].Seed.ID)

	rest, _, err := seeds.Changes(ctx, lastSeq, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[2], rest[0].Seed.ID)
}

func TestSeedStore_GetManySkipsMissing(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	require.NoError(t, seeds.BulkPut(ctx, []domain.Seed{
		{ID: "m1", Revision: "1-a", Name: "one"},
		{ID: "m2", Revision: "1-b", Name: "two"},
	}, true))

	got, err := seeds.GetMany(ctx, []string{"m2", "ghost", "m1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, "m1", got[1].ID)
}

func TestSeedStore_FindByAuthor(t *testing.T) {
	ctx := context.Background()
	seeds := newTestStore(t).SeedStore()

	_, err := seeds.Put(ctx, domain.Seed{
		Name:     "Ana",
		Category: domain.CategoryPerson,
		Scope:    domain.ScopePrivate,
		Author:   "ana@example.org",
	})
	require.NoError(t, err)

	got, err := seeds.FindByAuthor(ctx, "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	_, err = seeds.FindByAuthor(ctx, "nobody@example.org")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckpointStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	checkpoints := newTestStore(t).CheckpointStore()

	_, err := checkpoints.Get(ctx, domain.CheckpointPull)
	require.True(t, errors.Is(err, domain.ErrNotFound))

	cp := domain.Checkpoint{
		Name:      domain.CheckpointPull,
		Seq:       42,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, checkpoints.Save(ctx, cp))

	got, err := checkpoints.Get(ctx, domain.CheckpointPull)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Seq)

	// Save again to advance.
	cp.Seq = 99
	require.NoError(t, checkpoints.Save(ctx, cp))
	got, err = checkpoints.Get(ctx, domain.CheckpointPull)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Seq)

	require.NoError(t, checkpoints.Delete(ctx, domain.CheckpointPull))
	_, err = checkpoints.Get(ctx, domain.CheckpointPull)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
