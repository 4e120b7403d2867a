// Package memory is the storage boundary the gateway writes memories
// through. The gateway only ever sees the Writer interface; provenance is
// attached to each record before it crosses this boundary.
package memory

import (
	"context"

	"memgate/internal/provenance"
)

// Record is one memory to persist.
type Record struct {
	Content    string              `json:"content"`
	UserID     string              `json:"user_id"`
	Provenance provenance.Snapshot `json:"provenance"`
}

// Writer persists records and returns their assigned IDs.
type Writer interface {
	Write(ctx context.Context, record Record) (string, error)
}
