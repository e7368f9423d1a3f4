package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
	"github.com/apidae-tourisme/seedsync/internal/logger"
)

// Ensure Replicator implements the interface.
var _ driving.Replicator = (*Replicator)(nil)

const (
	// defaultFeedBatch is the change-feed batch size per direction.
	defaultFeedBatch = 100

	// defaultPollInterval is the wait between feed reads once a
	// direction has caught up.
	defaultPollInterval = 5 * time.Second

	// backoffBase and backoffCap bound the retry backoff. Retries
	// continue indefinitely while the session is live.
	backoffBase = 1 * time.Second
	backoffCap  = 30 * time.Second

	// eventBuffer bounds the event stream. A consumer that falls this
	// far behind loses events rather than stalling replication.
	eventBuffer = 64
)

// Replicator keeps the local store converged with the remote store
// for one user session. It drives the state machine
// Idle -> Bootstrapping -> Replicating <-> Paused, with Error reachable
// from any state and Cancelled as the terminal state.
//
// A Replicator runs at most one session; construct a new one per
// login.
type Replicator struct {
	local       driven.SeedStore
	remote      driven.RemoteStore
	checkpoints driven.CheckpointStore
	bootstrap   driving.BootstrapLoader
	indexer     driving.IndexRebuilder

	batchSize    int
	pollInterval time.Duration

	// backoffBase and backoffCap are overridable in tests.
	backoffBase time.Duration
	backoffCap  time.Duration

	mu      sync.Mutex
	state   domain.SyncState
	started bool
	cancel  context.CancelFunc

	events chan domain.SyncEvent
	done   chan struct{}
}

// NewReplicator creates a replicator over the given stores. batchSize
// and pollInterval fall back to defaults when zero or less.
func NewReplicator(
	local driven.SeedStore,
	remote driven.RemoteStore,
	checkpoints driven.CheckpointStore,
	bootstrap driving.BootstrapLoader,
	indexer driving.IndexRebuilder,
	batchSize int,
	pollInterval time.Duration,
) *Replicator {
	if batchSize <= 0 {
		batchSize = defaultFeedBatch
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Replicator{
		local:        local,
		remote:       remote,
		checkpoints:  checkpoints,
		bootstrap:    bootstrap,
		indexer:      indexer,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		backoffBase:  backoffBase,
		backoffCap:   backoffCap,
		state:        domain.SyncIdle,
		events:       make(chan domain.SyncEvent, eventBuffer),
		done:         make(chan struct{}),
	}
}

// Start begins the live session. It bootstraps first if the local
// store is empty, then runs the pull and push loops until Cancel or
// until ctx is cancelled.
func (r *Replicator) Start(ctx context.Context, userEmail string) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return domain.ErrReplicationActive
	}
	r.started = true
	sessionCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(sessionCtx, userEmail)
	return nil
}

// Cancel stops the session and waits for its loops to detach.
// Idempotent.
func (r *Replicator) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	started := r.started
	r.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-r.done
}

// Events returns the session event stream. Closed once the session
// reaches its terminal state.
func (r *Replicator) Events() <-chan domain.SyncEvent {
	return r.events
}

// State returns the current state machine state.
func (r *Replicator) State() domain.SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// run is the session body. It owns the event channel: no event is
// emitted after run returns.
func (r *Replicator) run(ctx context.Context, userEmail string) {
	defer close(r.done)
	defer close(r.events)

	if err := r.maybeBootstrap(ctx, userEmail); err != nil {
		r.finish(ctx)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.pullLoop(gctx, userEmail) })
	g.Go(func() error { return r.pushLoop(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Replication stopped: %v", err)
	}
	r.finish(ctx)
}

// maybeBootstrap backfills an empty local store, retrying with backoff
// until it succeeds or the session is cancelled. Bootstrap is
// idempotent by document id, so a retry resumes cleanly.
func (r *Replicator) maybeBootstrap(ctx context.Context, userEmail string) error {
	count, err := r.local.Count(ctx)
	if err != nil {
		r.reportError(err)
		return err
	}
	if count > 0 {
		return nil
	}

	r.setState(domain.SyncBootstrapping)
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		err := r.bootstrap.Bootstrap(ctx, userEmail, func(percent int) {
			r.emit(domain.SyncEvent{Kind: domain.EventProgress, Progress: percent})
		})
		if err != nil {
			r.reportError(err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// pullLoop applies remote changes to the local store. The checkpoint
// advances only after a batch is confirmed locally, so a crash before
// persistence re-applies an already-applied batch, which is harmless:
// writes are idempotent by document id.
func (r *Replicator) pullLoop(ctx context.Context, userEmail string) error {
	since, err := r.checkpointSeq(ctx, domain.CheckpointPull)
	if err != nil {
		return err
	}

	for {
		var (
			changes  []domain.Change
			lastSeq  int64
			caughtUp bool
		)
		err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
			var err error
			changes, lastSeq, caughtUp, err = r.remote.Changes(ctx, userEmail, since, r.batchSize)
			if err != nil {
				r.reportError(err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if len(changes) > 0 {
			r.setState(domain.SyncReplicating)
			if err := r.applyRemote(ctx, changes); err != nil {
				// A failing local store would otherwise spin the loop,
				// re-fetching the same batch as fast as the remote
				// answers. Wait out a poll interval before retrying.
				r.reportError(err)
				if err := r.sleepPoll(ctx); err != nil {
					return err
				}
				continue
			}
			if err := r.saveCheckpoint(ctx, domain.CheckpointPull, lastSeq); err != nil {
				r.reportError(err)
				if err := r.sleepPoll(ctx); err != nil {
					return err
				}
				continue
			}
			since = lastSeq
		}

		if caughtUp {
			// Converged. This is the normal resting state of the
			// session, revisited on every quiet stretch of the feed.
			r.setState(domain.SyncPaused)
			r.requestReindex(ctx)
		}
		if caughtUp || len(changes) == 0 {
			if err := r.sleepPoll(ctx); err != nil {
				return err
			}
		}
	}
}

// sleepPoll waits one poll interval or until the session is cancelled.
func (r *Replicator) sleepPoll(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.pollInterval):
		return nil
	}
}

// applyRemote writes one pulled batch into the local store as replica
// copies, preserving the remote revisions.
func (r *Replicator) applyRemote(ctx context.Context, changes []domain.Change) error {
	seeds := make([]domain.Seed, 0, len(changes))
	for _, change := range changes {
		if change.Deleted {
			// Seeds are never hard-deleted; archival travels as a
			// normal document update. Skip stray tombstones.
			continue
		}
		seeds = append(seeds, change.Seed)
	}
	if len(seeds) == 0 {
		return nil
	}
	return r.local.BulkPut(ctx, seeds, true)
}

// pushLoop uploads local edits to the remote store, excluding
// store-internal documents.
func (r *Replicator) pushLoop(ctx context.Context) error {
	since, err := r.checkpointSeq(ctx, domain.CheckpointPush)
	if err != nil {
		return err
	}

	for {
		changes, lastSeq, err := r.local.Changes(ctx, since, r.batchSize)
		if err != nil {
			r.reportError(err)
			changes, lastSeq = nil, since
		}

		seeds := make([]domain.Seed, 0, len(changes))
		for _, change := range changes {
			if change.Seed.Internal() {
				continue
			}
			seeds = append(seeds, change.Seed)
		}

		if len(seeds) > 0 {
			err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
				if err := r.remote.Push(ctx, seeds); err != nil {
					r.reportError(err)
					return retry.RetryableError(err)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		if lastSeq > since {
			if err := r.saveCheckpoint(ctx, domain.CheckpointPush, lastSeq); err != nil {
				r.reportError(err)
			} else {
				since = lastSeq
			}
		}

		if len(changes) < r.batchSize {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.pollInterval):
			}
		}
	}
}

// requestReindex asks the indexer for a rebuild; the indexer decides
// whether one is due.
func (r *Replicator) requestReindex(ctx context.Context) {
	if r.indexer == nil {
		return
	}
	rebuilt, err := r.indexer.RebuildIfDue(ctx)
	if err != nil {
		logger.Warn("Reindex failed: %v", err)
		return
	}
	if rebuilt {
		r.emit(domain.SyncEvent{Kind: domain.EventIndexReady})
	}
}

// backoff builds the retry policy: exponential from the base, capped,
// with no retry limit. Retrying stops only when the session context
// is cancelled.
func (r *Replicator) backoff() retry.Backoff {
	return retry.WithCappedDuration(r.backoffCap, retry.NewExponential(r.backoffBase))
}

// checkpointSeq loads a checkpoint, treating a missing one as the
// start of the feed.
func (r *Replicator) checkpointSeq(ctx context.Context, name string) (int64, error) {
	cp, err := r.checkpoints.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		r.reportError(err)
		return 0, err
	}
	return cp.Seq, nil
}

// saveCheckpoint persists confirmed progress for one direction.
func (r *Replicator) saveCheckpoint(ctx context.Context, name string, seq int64) error {
	return r.checkpoints.Save(ctx, domain.Checkpoint{
		Name:      name,
		Seq:       seq,
		UpdatedAt: time.Now(),
	})
}

// reportError classifies and emits a failure, moving the machine to
// Error. The session keeps retrying; only the caller decides to halt,
// including after AuthDenied.
func (r *Replicator) reportError(err error) {
	kind := domain.Kind(err)
	logger.Error("Sync error (%s): %v", kind, err)
	r.setState(domain.SyncError)
	r.emit(domain.SyncEvent{Kind: domain.EventSyncError, ErrKind: kind})
}

// finish moves the machine to its terminal state.
func (r *Replicator) finish(ctx context.Context) {
	if ctx.Err() != nil {
		r.setState(domain.SyncCancelled)
	}
}

// setState transitions the state machine, emitting an event only on
// an actual change.
func (r *Replicator) setState(state domain.SyncState) {
	r.mu.Lock()
	if r.state == state {
		r.mu.Unlock()
		return
	}
	r.state = state
	r.mu.Unlock()

	logger.Debug("Sync state: %s", state)
	r.emit(domain.SyncEvent{Kind: domain.EventStateChanged, State: state})
}

// emit delivers an event without ever blocking replication. A full
// buffer drops the event.
func (r *Replicator) emit(ev domain.SyncEvent) {
	select {
	case r.events <- ev:
	default:
		logger.Debug("Event dropped (slow consumer): %s", ev.Kind)
	}
}
