package domain

import (
	"strings"
	"time"
)

// Scope classifies who can see a Seed.
type Scope string

const (
	// ScopePublic makes a Seed visible to everyone.
	ScopePublic Scope = "public"

	// ScopePrivate restricts a Seed to its author.
	ScopePrivate Scope = "private"

	// ScopeApidae makes a Seed visible organisation-wide.
	ScopeApidae Scope = "apidae"

	// ScopeAll is a query-side filter value matching every scope.
	// It is never stored on a Seed.
	ScopeAll Scope = "all"
)

// Category is the entity type tag of a Seed.
type Category string

const (
	CategoryPerson  Category = "person"
	CategoryPlace   Category = "place"
	CategoryEvent   Category = "event"
	CategoryConcept Category = "concept"
)

// Link is a labelled URL attached to a Seed.
type Link struct {
	// Label is the display text.
	Label string

	// URL is the link target.
	URL string
}

// internalIDPrefix marks documents that belong to the store itself
// (design documents) rather than to the graph. They are never pushed.
const internalIDPrefix = "_design"

// Seed is a node of the connection graph. It is the unit of
// replication, indexing and graph maintenance.
type Seed struct {
	// ID is the globally unique identifier, assigned by the store on
	// first write. Empty on a not-yet-created Seed.
	ID string

	// Revision is the opaque optimistic-concurrency token. Empty on
	// creation, required on update.
	Revision string

	// Name is the display name. Indexed for search.
	Name string

	// Description is the free-form body text. Indexed for search.
	Description string

	// Address is the postal address, if any. Indexed for search.
	Address string

	// Category is the entity type tag.
	Category Category

	// Scope controls visibility (public, private, apidae).
	Scope Scope

	// Author is the email of the owning user.
	Author string

	// Archived soft-deletes the Seed: it stays in the store but drops
	// out of visibility and out of the search index.
	Archived bool

	// Connections holds the ids of connected Seeds. Semantically a
	// set: unique, unordered.
	Connections []string

	// Picture is an optional attachment reference.
	Picture string

	// URLs are optional external links.
	URLs []Link

	// StartDate and EndDate bound event-like Seeds.
	StartDate *time.Time
	EndDate   *time.Time
}

// VisibleTo reports whether the Seed is visible to the given user.
// This is the single visibility predicate shared by the replicator's
// pull filter and the indexer's corpus filter.
func (s *Seed) VisibleTo(userEmail string) bool {
	if s.Archived {
		return false
	}
	return s.Scope == ScopePublic || s.Scope == ScopeApidae || s.Author == userEmail
}

// Internal reports whether the Seed is a store-internal document.
// Internal documents are excluded from the push filter.
func (s *Seed) Internal() bool {
	return strings.HasPrefix(s.ID, internalIDPrefix)
}

// IsNew reports whether the Seed has never been written to a store.
func (s *Seed) IsNew() bool {
	return s.Revision == ""
}

// HasConnection reports whether id is in the connection set.
func (s *Seed) HasConnection(id string) bool {
	for _, c := range s.Connections {
		if c == id {
			return true
		}
	}
	return false
}

// AddConnection inserts id into the connection set. Idempotent: adding
// an existing connection reports false and leaves the set unchanged.
func (s *Seed) AddConnection(id string) bool {
	if s.HasConnection(id) {
		return false
	}
	s.Connections = append(s.Connections, id)
	return true
}

// RemoveConnection deletes id from the connection set. Removing an
// absent connection is a no-op and reports false.
func (s *Seed) RemoveConnection(id string) bool {
	for i, c := range s.Connections {
		if c == id {
			s.Connections = append(s.Connections[:i], s.Connections[i+1:]...)
			return true
		}
	}
	return false
}

// DiffConnections computes the connection-set difference between the
// previous and next versions of a Seed: added holds ids present only
// in next, removed holds ids present only in prev.
func DiffConnections(prev, next []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		prevSet[id] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
	}

	for _, id := range next {
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := nextSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
