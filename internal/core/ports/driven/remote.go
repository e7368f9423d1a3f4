package driven

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
)

// RemoteStore is the shared remote document collection. All listing
// and change-feed operations are filtered server-side to the documents
// visible to the given user, with the same predicate as
// domain.Seed.VisibleTo.
type RemoteStore interface {
	// Count returns the number of documents visible to the user.
	Count(ctx context.Context, userEmail string) (int, error)

	// List returns one page of visible documents, ordered by id, using
	// limit/skip pagination. Attachment references are included.
	List(ctx context.Context, userEmail string, limit, skip int) ([]domain.Seed, error)

	// Changes reads the next batch of the remote change feed after the
	// since sequence, at most limit entries. lastSeq is the sequence to
	// checkpoint once the batch is applied; caughtUp reports that the
	// feed is exhausted (local and remote converged).
	Changes(ctx context.Context, userEmail string, since int64, limit int) (changes []domain.Change, lastSeq int64, caughtUp bool, err error)

	// Push uploads local edits, preserving their revisions.
	Push(ctx context.Context, seeds []domain.Seed) error
}
