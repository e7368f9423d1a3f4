package services

import (
	"context"
	"fmt"

	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
	"github.com/apidae-tourisme/seedsync/internal/logger"
)

// Ensure BootstrapLoader implements the interface.
var _ driving.BootstrapLoader = (*BootstrapLoader)(nil)

// DefaultBatchSize is the number of documents fetched per bootstrap
// batch.
const DefaultBatchSize = 500

// BootstrapLoader backfills an empty local store from the remote
// listing endpoint in sequential fixed-size batches. Sequential
// fetching is deliberate: it bounds memory and avoids overwhelming the
// remote during a potentially large first sync on a constrained
// connection.
type BootstrapLoader struct {
	local     driven.SeedStore
	remote    driven.RemoteStore
	batchSize int
}

// NewBootstrapLoader creates a bootstrap loader. A batchSize of zero
// or less falls back to DefaultBatchSize.
func NewBootstrapLoader(local driven.SeedStore, remote driven.RemoteStore, batchSize int) *BootstrapLoader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BootstrapLoader{
		local:     local,
		remote:    remote,
		batchSize: batchSize,
	}
}

// Bootstrap fetches all documents visible to the user and writes them
// into the local store with preserved revisions, reporting progress
// after each committed batch. A failing batch aborts the run; batches
// already written stay committed, and a retry resumes without
// duplicating documents because writes are keyed by document id.
func (l *BootstrapLoader) Bootstrap(ctx context.Context, userEmail string, onProgress func(percent int)) error {
	total, err := l.remote.Count(ctx, userEmail)
	if err != nil {
		return fmt.Errorf("count remote documents: %w", err)
	}
	if total == 0 {
		logger.Info("Bootstrap: nothing to transfer")
		if onProgress != nil {
			onProgress(100)
		}
		return nil
	}

	batches := (total + l.batchSize - 1) / l.batchSize
	logger.Info("Bootstrap: %d documents in %d batches of %d", total, batches, l.batchSize)

	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := l.remote.List(ctx, userEmail, l.batchSize, i*l.batchSize)
		if err != nil {
			return fmt.Errorf("fetch batch %d/%d: %w", i+1, batches, err)
		}

		// Replica copies: keep the remote revisions so these documents
		// stay byte-identical to their checkpointed upstream versions.
		if err := l.local.BulkPut(ctx, page, true); err != nil {
			return fmt.Errorf("write batch %d/%d: %w", i+1, batches, err)
		}

		if onProgress != nil {
			onProgress(progressPercent(i+1, batches))
		}
	}

	return nil
}

// progressPercent converts completed/total batches to a percentage,
// rounding up so partial progress never reports 0 and the final batch
// always reports 100.
func progressPercent(done, total int) int {
	return (done*100 + total - 1) / total
}
