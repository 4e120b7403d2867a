package sessionlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore holds sessions in insertion order. Used in tests and when
// no database is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions []Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *InMemoryStore) ListByEntry(_ context.Context, entryID uuid.UUID, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Session
	// Newest first.
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if s.sessions[i].EntryID != entryID {
			continue
		}
		out = append(out, s.sessions[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Session
	for i := len(s.sessions) - 1; i >= 0; i-- {
		out = append(out, s.sessions[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountByEntrySince(_ context.Context, since time.Time) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for _, session := range s.sessions {
		if session.ObservedAt.Before(since) {
			continue
		}
		counts[session.EntryID]++
	}
	return counts, nil
}

// Len reports the number of recorded sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
