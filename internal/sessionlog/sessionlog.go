// Package sessionlog keeps the append-only record of client sightings.
// Every resolved request appends one session row; rows are never updated
// or deleted, so the log doubles as the activity source for registry
// stats.
package sessionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one observed client interaction.
type Session struct {
	ID           uuid.UUID `json:"id"`
	EntryID      uuid.UUID `json:"entry_id"`
	DetectedVia  string    `json:"detected_via"`
	Confidence   int       `json:"confidence"`
	EndpointPath string    `json:"endpoint_path,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	RemoteAddr   string    `json:"remote_addr,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Store persists sessions. Append-only by contract.
type Store interface {
	Append(ctx context.Context, session Session) error
	ListByEntry(ctx context.Context, entryID uuid.UUID, limit int) ([]Session, error)
	ListRecent(ctx context.Context, limit int) ([]Session, error)
	CountByEntrySince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error)
}
