// Package auth resolves the current user identity from OAuth2
// credentials.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
)

const defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// OAuthProvider resolves the user email from an OAuth2 token source by
// querying the provider's userinfo endpoint. The email is cached for
// the lifetime of the provider.
type OAuthProvider struct {
	source      oauth2.TokenSource
	userInfoURL string

	mu    sync.Mutex
	email string
}

var _ driven.CredentialsProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates a provider backed by the given token source.
// An empty userInfoURL selects the Google OpenID Connect endpoint.
func NewOAuthProvider(source oauth2.TokenSource, userInfoURL string) *OAuthProvider {
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	return &OAuthProvider{source: source, userInfoURL: userInfoURL}
}

// UserEmail returns the email of the authenticated user.
func (p *OAuthProvider) UserEmail(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.email != "" {
		return p.email, nil
	}

	token, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuthDenied, err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("building userinfo request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: userinfo status %d", domain.ErrAuthDenied, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("%w: userinfo carries no email", domain.ErrAuthDenied)
	}

	p.email = info.Email
	return p.email, nil
}

// StaticProvider returns a fixed email. Used when the identity comes
// from configuration rather than an OAuth2 flow.
type StaticProvider struct {
	Email string
}

var _ driven.CredentialsProvider = (*StaticProvider)(nil)

// UserEmail returns the configured email.
func (p *StaticProvider) UserEmail(_ context.Context) (string, error) {
	if p.Email == "" {
		return "", domain.ErrAuthDenied
	}
	return p.Email, nil
}
