package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

func buildIndex(t *testing.T, corpus []domain.Seed) *Index {
	t.Helper()
	ix := NewIndex()
	require.NoError(t, ix.Rebuild(context.Background(), corpus))
	return ix
}

func TestIndex_NotReadyBeforeRebuild(t *testing.T) {
	ix := NewIndex()
	assert.False(t, ix.Ready())
}

func TestIndex_ReadyAfterRebuild(t *testing.T) {
	ix := buildIndex(t, nil)
	assert.True(t, ix.Ready())
}

func TestIndex_ExactMatchOutranksPrefix(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{
		{ID: "exact", Name: "Jardin"},
		{ID: "prefix", Name: "Jardinerie"},
	})

	hits, err := ix.Search(context.Background(), "jardin")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].SeedID)
	assert.Equal(t, "prefix", hits[1].SeedID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestIndex_PrefixOutranksFuzzy(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{
		{ID: "prefix", Name: "Lavanderaie"},
		{ID: "fuzzy", Name: "Lavende"},
	})

	hits, err := ix.Search(context.Background(), "lavande")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "prefix", hits[0].SeedID)
	assert.Equal(t, "fuzzy", hits[1].SeedID)
}

func TestIndex_AccentedQueryMatchesAccentedDocument(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{
		{ID: "doc", Name: "Café-Théâtre des Cordeliers"},
	})

	hits, err := ix.Search(context.Background(), "cafe")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc", hits[0].SeedID)
}

func TestIndex_AllFieldsContribute(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{
		{ID: "name", Name: "Annecy"},
		{ID: "desc", Description: "Visite guidée d'Annecy"},
		{ID: "addr", Address: "74000 Annecy"},
	})

	hits, err := ix.Search(context.Background(), "annecy")
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestIndex_MultiTermScoresAccumulate(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{
		{ID: "both", Name: "Lac d'Annecy"},
		{ID: "one", Name: "Annecy"},
	})

	hits, err := ix.Search(context.Background(), "lac annecy")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "both", hits[0].SeedID)
}

func TestIndex_RebuildReplacesContents(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{{ID: "old", Name: "Ancien"}})
	require.NoError(t, ix.Rebuild(context.Background(), []domain.Seed{{ID: "new", Name: "Nouveau"}}))

	hits, err := ix.Search(context.Background(), "ancien")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = ix.Search(context.Background(), "nouveau")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].SeedID)
}

func TestIndex_EmptyQuery(t *testing.T) {
	ix := buildIndex(t, []domain.Seed{{ID: "doc", Name: "Annecy"}})

	hits, err := ix.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestWithinOneEdit(t *testing.T) {
	assert.True(t, withinOneEdit("lavende", "lavande"))  // substitution
	assert.True(t, withinOneEdit("lavande", "lavnde"))   // deletion
	assert.True(t, withinOneEdit("lavande", "lavandes")) // insertion
	assert.False(t, withinOneEdit("lavande", "lavande")) // identical
	assert.False(t, withinOneEdit("lavande", "lavnd"))   // distance 2
}
