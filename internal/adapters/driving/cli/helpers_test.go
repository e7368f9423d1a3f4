package cli

import (
	"context"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driving"
)

// mockSeedService returns canned seeds keyed by id.
type mockSeedService struct {
	seeds map[string]domain.Seed
}

func (m *mockSeedService) Save(_ context.Context, seed domain.Seed) (driving.SaveResult, error) {
	if seed.ID == "" {
		seed.ID = "generated-id"
	}
	m.seeds[seed.ID] = seed
	return driving.SaveResult{ID: seed.ID, OK: true}, nil
}

func (m *mockSeedService) Get(_ context.Context, id string) (*domain.Seed, error) {
	seed, ok := m.seeds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &seed, nil
}

func (m *mockSeedService) NodeData(_ context.Context, rootID string) (*driving.NodeData, error) {
	root, ok := m.seeds[rootID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	data := &driving.NodeData{Count: len(m.seeds), Nodes: []domain.Seed{root}}
	for _, id := range root.Connections {
		if peer, ok := m.seeds[id]; ok {
			data.Nodes = append(data.Nodes, peer)
			data.Edges = append(data.Edges, driving.Edge{Source: id, Target: rootID})
		}
	}
	return data, nil
}

func (m *mockSeedService) UserSeed(_ context.Context, email string) (*domain.Seed, error) {
	for _, seed := range m.seeds {
		if seed.Author == email {
			s := seed
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

// mockSearchService returns a fixed result list.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
}

func (m *mockSearchService) Search(_ context.Context, _ string, _ domain.Scope) ([]domain.SearchResult, error) {
	return m.results, m.err
}

// mockCredentials is a fixed identity.
type mockCredentials struct {
	email string
}

func (m *mockCredentials) UserEmail(_ context.Context) (string, error) {
	if m.email == "" {
		return "", domain.ErrAuthDenied
	}
	return m.email, nil
}

// setupTestServices wires mock services and returns a cleanup restoring
// the previous wiring.
func setupTestServices() func() {
	oldSeed, oldSearch, oldCreds := seedService, searchService, credentials

	seedService = &mockSeedService{seeds: map[string]domain.Seed{
		"s1": {
			ID: "s1", Revision: "1-a", Name: "Jardin des Plantes",
			Category: domain.CategoryPlace, Scope: domain.ScopePublic,
			Address: "Lyon", Connections: []string{"s2"},
		},
		"s2": {
			ID: "s2", Revision: "1-b", Name: "Ana",
			Category: domain.CategoryPerson, Scope: domain.ScopePrivate,
			Author: "ana@example.org", Connections: []string{"s1"},
		},
	}}
	searchService = &mockSearchService{results: []domain.SearchResult{
		{Seed: domain.Seed{ID: "s1", Name: "Jardin des Plantes", Category: domain.CategoryPlace, Scope: domain.ScopePublic, Address: "Lyon"}, Score: 100},
	}}
	credentials = &mockCredentials{email: "ana@example.org"}

	return func() {
		seedService, searchService, credentials = oldSeed, oldSearch, oldCreds
	}
}
