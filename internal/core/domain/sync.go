package domain

import "time"

// SyncState is a state of the replication state machine.
type SyncState string

const (
	// SyncIdle is the initial state before a session starts.
	SyncIdle SyncState = "idle"

	// SyncBootstrapping is the one-time bulk backfill of an empty
	// local store.
	SyncBootstrapping SyncState = "bootstrapping"

	// SyncReplicating means changes are flowing.
	SyncReplicating SyncState = "replicating"

	// SyncPaused means local and remote are converged. This is the
	// normal resting state of a live session, not an error.
	SyncPaused SyncState = "paused"

	// SyncError means the session hit a failure and is backing off
	// before retrying.
	SyncError SyncState = "error"

	// SyncCancelled is the terminal state after an external Cancel.
	SyncCancelled SyncState = "cancelled"
)

// Checkpoint names. Pull and push progress are tracked independently,
// one checkpoint per direction.
const (
	CheckpointPull = "pull"
	CheckpointPush = "push"
)

// Checkpoint marks replication progress in a change feed. Seq is
// monotonically increasing; a resumed session continues from the last
// persisted checkpoint instead of re-scanning the feed.
type Checkpoint struct {
	// Name identifies the feed direction (pull or push).
	Name string

	// Seq is the last acknowledged sequence number.
	Seq int64

	// UpdatedAt is when the checkpoint was last advanced.
	UpdatedAt time.Time
}

// Change is one entry of a change feed, local or remote.
type Change struct {
	// Seed is the document at this feed position.
	Seed Seed

	// Seq is the feed sequence of this change.
	Seq int64

	// Deleted marks a tombstone entry.
	Deleted bool
}

// EventKind discriminates replication events.
type EventKind string

const (
	// EventStateChanged reports a state machine transition.
	EventStateChanged EventKind = "state_changed"

	// EventProgress reports bootstrap progress as a percentage.
	EventProgress EventKind = "progress"

	// EventIndexReady reports that a search index rebuild completed.
	EventIndexReady EventKind = "index_ready"

	// EventSyncError reports a classified sync failure. The session
	// keeps retrying unless the caller cancels it.
	EventSyncError EventKind = "sync_error"
)

// SyncEvent is one entry of the ordered event stream a replication
// session emits to its collaborators.
type SyncEvent struct {
	// Kind discriminates which of the remaining fields are set.
	Kind EventKind

	// State is set for EventStateChanged.
	State SyncState

	// Progress is set for EventProgress (0-100).
	Progress int

	// ErrKind is set for EventSyncError.
	ErrKind ErrorKind
}
