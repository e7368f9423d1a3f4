package driven

import "context"

// CredentialsProvider yields the identity of the current user. The
// authentication flow itself (browser redirect, token exchange) is
// outside the core; the core only consumes the resulting email.
type CredentialsProvider interface {
	// UserEmail returns the email of the authenticated user.
	// Returns domain.ErrAuthDenied if the credentials are rejected.
	UserEmail(ctx context.Context) (string, error)
}
