package driving

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// Replicator drives a live, continuous, bidirectional sync session
// between the local and remote stores, restricted to the documents
// visible to the current user.
type Replicator interface {
	// Start begins a replication session for the user. If the local
	// store is empty it bootstraps first. Start returns once the
	// session is running; progress and state transitions are delivered
	// on Events. Returns domain.ErrReplicationActive if a session is
	// already running.
	Start(ctx context.Context, userEmail string) error

	// Cancel stops the live session and detaches listeners.
	// Idempotent: cancelling a stopped session is a no-op.
	Cancel()

	// Events is the single ordered stream of session events. Closed
	// after the session reaches its terminal state.
	Events() <-chan domain.SyncEvent

	// State returns the current state of the session state machine.
	State() domain.SyncState
}

// BootstrapLoader performs the one-time bulk backfill of an empty
// local store from the remote listing endpoint.
type BootstrapLoader interface {
	// Bootstrap fetches all documents visible to the user in
	// sequential fixed-size batches, writing each batch with preserved
	// revisions, and reports progress after each batch as a
	// percentage. Safe to re-run after a partial failure: writes are
	// keyed by document id, so committed batches are not duplicated.
	Bootstrap(ctx context.Context, userEmail string, onProgress func(percent int)) error
}
