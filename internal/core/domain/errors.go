package domain

import "errors"

// Domain errors represent sync and store failures.
// Adapters map transport-level failures onto these sentinels so the
// core can classify them without knowing the transport.
var (
	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRevisionConflict indicates a revision-checked write lost a
	// race against a concurrent update.
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrNetworkUnavailable indicates the remote store is unreachable.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrAuthDenied indicates the remote rejected the user's
	// credentials. It does not self-heal: the caller must
	// re-authenticate and restart.
	ErrAuthDenied = errors.New("authentication denied")

	// ErrBulkWritePartial indicates a bulk write applied some
	// documents but not all of them.
	ErrBulkWritePartial = errors.New("bulk write partially failed")

	// ErrReplicationActive indicates a replication session is already
	// running for this replicator.
	ErrReplicationActive = errors.New("replication already active")
)

// ErrorKind is the coarse classification of a sync failure, used for
// upward error events.
type ErrorKind string

const (
	KindNetworkUnavailable      ErrorKind = "network_unavailable"
	KindAuthDenied              ErrorKind = "auth_denied"
	KindRevisionConflict        ErrorKind = "revision_conflict"
	KindDocumentNotFound        ErrorKind = "document_not_found"
	KindBulkWritePartialFailure ErrorKind = "bulk_write_partial_failure"
	KindUnknown                 ErrorKind = "unknown"
)

// Kind classifies an error against the domain sentinels.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNetworkUnavailable):
		return KindNetworkUnavailable
	case errors.Is(err, ErrAuthDenied):
		return KindAuthDenied
	case errors.Is(err, ErrRevisionConflict):
		return KindRevisionConflict
	case errors.Is(err, ErrNotFound):
		return KindDocumentNotFound
	case errors.Is(err, ErrBulkWritePartial):
		return KindBulkWritePartialFailure
	default:
		return KindUnknown
	}
}
