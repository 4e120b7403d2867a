// Package store provides the registry's backing stores. InMemory serves
// unit tests and single-process development; Postgres is the production
// store. Both implement identical upsert and transition semantics.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"memgate/internal/registry/models"
	"memgate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map keyed by client identifier. Entries are
// copied on the way in and out so callers can never mutate shared state.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]*models.Entry
	byID    map[uuid.UUID]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[string]*models.Entry),
		byID:    make(map[uuid.UUID]string),
	}
}

// Upsert inserts the candidate entry or, when the identifier already
// exists, records a sighting on the existing entry. The bool reports
// whether a new entry was created. Concurrent first sightings of the same
// identifier resolve to exactly one entry.
func (s *InMemory) Upsert(ctx context.Context, candidate *models.Entry) (*models.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[candidate.ClientIdentifier]; ok {
		existing.Touch(candidate.LastSeenAt)
		return copyEntry(existing), false, nil
	}

	stored := copyEntry(candidate)
	s.entries[stored.ClientIdentifier] = stored
	s.byID[stored.ID] = stored.ClientIdentifier
	return copyEntry(stored), true, nil
}

func (s *InMemory) Get(ctx context.Context, identifier string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyEntry(entry), nil
}

func (s *InMemory) GetByID(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identifier, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyEntry(s.entries[identifier]), nil
}

func (s *InMemory) List(ctx context.Context, filter models.ListFilter) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if filter.Matches(entry) {
			out = append(out, copyEntry(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FirstSeenAt.After(out[j].FirstSeenAt)
	})
	return out, nil
}

// GetByIDs fetches a batch of entries for bulk administrative actions.
// Missing IDs are skipped, matching the Postgres ANY($1) behavior.
func (s *InMemory) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Entry
	for _, id := range ids {
		if identifier, ok := s.byID[id]; ok {
			out = append(out, copyEntry(s.entries[identifier]))
		}
	}
	return out, nil
}

// Execute runs validate-then-mutate atomically against one entry. The lock
// is held for both steps so a concurrent transition cannot interleave.
// A validation error leaves the entry untouched.
func (s *InMemory) Execute(ctx context.Context, id uuid.UUID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identifier, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	entry := s.entries[identifier]
	if err := validate(entry); err != nil {
		return nil, err
	}
	mutate(entry)
	return copyEntry(entry), nil
}

func copyEntry(e *models.Entry) *models.Entry {
	c := *e
	return &c
}
