package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
	"github.com/apidae-tourisme/seedsync/internal/logger"
)

// Ensure SeedService implements the interface.
var _ driving.SeedService = (*SeedService)(nil)

// SeedService is the save/read surface of the connection graph. Save
// is the sole writer of user edits and the sole enforcer of the
// edge-symmetry invariant: whenever B appears in A's connections, A
// appears in B's.
type SeedService struct {
	store driven.SeedStore
}

// NewSeedService creates a seed service over the local store.
func NewSeedService(store driven.SeedStore) *SeedService {
	return &SeedService{store: store}
}

// Save creates or updates a Seed, then repairs the remote end of every
// added or removed connection. The target document commits first; a
// failure while bulk-writing the peers yields a degraded success
// (OK false) without rolling back the target — the asymmetry window is
// healed by the next save touching those documents.
func (s *SeedService) Save(ctx context.Context, seed domain.Seed) (driving.SaveResult, error) {
	added, removed, err := s.connectionsChange(ctx, &seed)
	if err != nil {
		return driving.SaveResult{}, err
	}

	saved, err := s.store.Put(ctx, seed)
	if err != nil {
		return driving.SaveResult{}, fmt.Errorf("save seed: %w", err)
	}

	if err := s.updateConnections(ctx, saved.ID, added, removed); err != nil {
		logger.Warn("Peer update for %s incomplete: %v", saved.ID, err)
		return driving.SaveResult{ID: saved.ID, OK: false}, err
	}

	return driving.SaveResult{ID: saved.ID, OK: true}, nil
}

// connectionsChange computes the connection-set diff against the
// stored version of the document. A new document treats every
// connection as an addition.
func (s *SeedService) connectionsChange(ctx context.Context, seed *domain.Seed) (added, removed []string, err error) {
	if seed.IsNew() {
		return append([]string(nil), seed.Connections...), nil, nil
	}

	prev, err := s.store.Get(ctx, seed.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("read previous version: %w", err)
	}
	added, removed = domain.DiffConnections(prev.Connections, seed.Connections)
	return added, removed, nil
}

// updateConnections repairs the peer end of each changed edge and
// commits all repairs in one bulk write. Peer mutations are
// idempotent, so an edge already repaired by a concurrent device is a
// no-op here.
func (s *SeedService) updateConnections(ctx context.Context, id string, added, removed []string) error {
	var queued []domain.Seed

	peers, err := s.store.GetMany(ctx, added)
	if err != nil {
		return fmt.Errorf("fetch added peers: %w", err)
	}
	for i := range peers {
		if peers[i].AddConnection(id) {
			queued = append(queued, peers[i])
		}
	}

	peers, err = s.store.GetMany(ctx, removed)
	if err != nil {
		return fmt.Errorf("fetch removed peers: %w", err)
	}
	for i := range peers {
		if peers[i].RemoveConnection(id) {
			queued = append(queued, peers[i])
		}
	}

	if len(queued) == 0 {
		return nil
	}

	if err := s.store.BulkPut(ctx, queued, false); err != nil {
		if errors.Is(err, domain.ErrRevisionConflict) {
			return s.recheckConflicts(ctx, id, added, removed, err)
		}
		return err
	}
	return nil
}

// recheckConflicts reloads conflicted peers and verifies the expected
// entry state. A conflict usually means another device already applied
// the equivalent change; it is escalated only when the reloaded peer
// still disagrees with the edge.
func (s *SeedService) recheckConflicts(ctx context.Context, id string, added, removed []string, cause error) error {
	var stale []domain.Seed

	peers, err := s.store.GetMany(ctx, added)
	if err != nil {
		return fmt.Errorf("recheck added peers: %w", err)
	}
	for i := range peers {
		if peers[i].AddConnection(id) {
			stale = append(stale, peers[i])
		}
	}

	peers, err = s.store.GetMany(ctx, removed)
	if err != nil {
		return fmt.Errorf("recheck removed peers: %w", err)
	}
	for i := range peers {
		if peers[i].RemoveConnection(id) {
			stale = append(stale, peers[i])
		}
	}

	if len(stale) == 0 {
		// Someone else already applied the equivalent change.
		logger.Debug("Peer conflict for %s resolved concurrently", id)
		return nil
	}

	if err := s.store.BulkPut(ctx, stale, false); err != nil {
		return fmt.Errorf("retry peer update: %w (after %w)", err, cause)
	}
	return nil
}

// Get retrieves a Seed by id.
func (s *SeedService) Get(ctx context.Context, id string) (*domain.Seed, error) {
	return s.store.Get(ctx, id)
}

// NodeData resolves a root Seed and its connected Seeds into the
// node/edge shape the external renderer consumes.
func (s *SeedService) NodeData(ctx context.Context, rootID string) (*driving.NodeData, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	root, err := s.store.Get(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("get root node: %w", err)
	}

	nodes, err := s.store.GetMany(ctx, root.Connections)
	if err != nil {
		return nil, fmt.Errorf("get connected nodes: %w", err)
	}

	data := &driving.NodeData{
		Count: count,
		Nodes: append([]domain.Seed{*root}, nodes...),
	}
	for i := range nodes {
		data.Edges = append(data.Edges, driving.Edge{Source: nodes[i].ID, Target: root.ID})
	}
	return data, nil
}

// UserSeed returns the Seed authored by the given user.
func (s *SeedService) UserSeed(ctx context.Context, email string) (*domain.Seed, error) {
	return s.store.FindByAuthor(ctx, email)
}
