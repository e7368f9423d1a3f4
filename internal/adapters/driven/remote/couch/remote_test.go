package couch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

func TestRemote_Count(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seeds/_design/seeds/_view/visible", r.URL.Path)
		assert.Equal(t, "ana@example.org", r.URL.Query().Get("user"))
		assert.Equal(t, "0", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{"total_rows": 1200, "rows": []any{}})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, "seeds")
	count, err := remote.Count(context.Background(), "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, 1200, count)
}

func TestRemote_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "1000", r.URL.Query().Get("skip"))
		assert.Equal(t, "true", r.URL.Query().Get("include_docs"))
		json.NewEncoder(w).Encode(map[string]any{
			"total_rows": 1200,
			"rows": []any{
				map[string]any{"doc": map[string]any{
					"_id": "s1", "_rev": "3-abc", "name": "Jardin", "scope": "public",
					"connections": []string{"s2"},
					"urls":        []any{map[string]any{"label": "site", "url": "https://example.org"}},
				}},
			},
		})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, "seeds")
	seeds, err := remote.List(context.Background(), "ana@example.org", 500, 1000)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "s1", seeds[0].ID)
	assert.Equal(t, "3-abc", seeds[0].Revision)
	assert.Equal(t, domain.ScopePublic, seeds[0].Scope)
	assert.Equal(t, []string{"s2"}, seeds[0].Connections)
	require.Len(t, seeds[0].URLs, 1)
	assert.Equal(t, "https://example.org", seeds[0].URLs[0].URL)
}

func TestRemote_ChangesParsesStringSequences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seeds/_changes", r.URL.Path)
		assert.Equal(t, "seeds/visible", r.URL.Query().Get("filter"))
		assert.Equal(t, "7", r.URL.Query().Get("since"))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				map[string]any{"seq": "8-g1AAAA", "doc": map[string]any{"_id": "s1", "_rev": "2-a", "name": "one"}},
				map[string]any{"seq": float64(9), "deleted": true, "doc": map[string]any{"_id": "s2", "_rev": "4-b"}},
			},
			"last_seq": "9-g1AAAB",
			"pending":  0,
		})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, "seeds")
	changes, lastSeq, caughtUp, err := remote.Changes(context.Background(), "ana@example.org", 7, 100)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, int64(8), changes[0].Seq)
	assert.False(t, changes[0].Deleted)
	assert.Equal(t, int64(9), changes[1].Seq)
	assert.True(t, changes[1].Deleted)
	assert.Equal(t, int64(9), lastSeq)
	assert.True(t, caughtUp)
}

func TestRemote_ChangesNotCaughtUpWhilePending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results":  []any{map[string]any{"seq": 3, "doc": map[string]any{"_id": "s1", "_rev": "1-a"}}},
			"last_seq": 3,
			"pending":  42,
		})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, "seeds")
	_, _, caughtUp, err := remote.Changes(context.Background(), "ana@example.org", 0, 1)
	require.NoError(t, err)
	assert.False(t, caughtUp)
}

func TestRemote_PushPreservesRevisions(t *testing.T) {
	var received bulkDocsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/seeds/_bulk_docs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{{"id": "s1", "ok": true}})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, "seeds")
	err := remote.Push(context.Background(), []domain.Seed{
		{ID: "s1", Revision: "5-abc", Name: "edited"},
	})
	require.NoError(t, err)
	assert.False(t, received.NewEdits)
	require.Len(t, received.Docs, 1)
	assert.Equal(t, "5-abc", received.Docs[0].Rev)
}

func TestRemote_PushConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{{"id": "s1", "error": "conflict"}})
	}))
	defer server.Close()

	remote := NewRemote(server.URL, "seeds")
	err := remote.Push(context.Background(), []domain.Seed{{ID: "s1", Revision: "1-a"}})
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)
}

func TestRemote_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuthDenied},
		{"forbidden", http.StatusForbidden, domain.ErrAuthDenied},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"conflict", http.StatusConflict, domain.ErrRevisionConflict},
		{"server error", http.StatusInternalServerError, domain.ErrNetworkUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			remote := NewRemote(server.URL, "seeds")
			_, err := remote.Count(context.Background(), "ana@example.org")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRemote_NetworkUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Refuse connections.

	remote := NewRemote(server.URL, "seeds")
	_, err := remote.Count(context.Background(), "ana@example.org")
	assert.ErrorIs(t, err, domain.ErrNetworkUnavailable)
}
