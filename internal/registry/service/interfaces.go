package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"memgate/internal/registry/models"
)

// Store is the registry's backing store contract. Upsert must be atomic and
// keyed on client_identifier; Execute must hold its lock across validate
// and mutate.
type Store interface {
	Upsert(ctx context.Context, candidate *models.Entry) (*models.Entry, bool, error)
	Get(ctx context.Context, identifier string) (*models.Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Entry, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Entry, error)
	Execute(ctx context.Context, id uuid.UUID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error)
}

// StatusCache caches identifier→status for outage-mode policy decisions.
type StatusCache interface {
	SetStatus(ctx context.Context, identifier string, status models.Status) error
	GetStatus(ctx context.Context, identifier string) (models.Status, bool, error)
}

// SessionCounter is the slice of the session log the stats endpoint reads.
// The detection path never consumes it; only admin analytics do.
type SessionCounter interface {
	CountByEntrySince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error)
}
