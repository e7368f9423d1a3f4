package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

func TestOAuthProvider_UserEmail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"email": "ana@example.org"})
	}))
	defer server.Close()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-1"})
	provider := NewOAuthProvider(source, server.URL)

	email, err := provider.UserEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", email)

	// Second call is served from the cache.
	email, err = provider.UserEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", email)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOAuthProvider_RejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "expired"})
	provider := NewOAuthProvider(source, server.URL)

	_, err := provider.UserEmail(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthDenied)
}

func TestOAuthProvider_MissingEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sub": "12345"})
	}))
	defer server.Close()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"})
	provider := NewOAuthProvider(source, server.URL)

	_, err := provider.UserEmail(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthDenied)
}

func TestStaticProvider(t *testing.T) {
	provider := &StaticProvider{Email: "ana@example.org"}
	email, err := provider.UserEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", email)

	empty := &StaticProvider{}
	_, err = empty.UserEmail(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthDenied)
}
