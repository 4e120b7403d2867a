package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryWriter keeps records in a map. Tests read them back to assert
// on stored provenance.
type InMemoryWriter struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryWriter() *InMemoryWriter {
	return &InMemoryWriter{records: make(map[string]Record)}
}

func (w *InMemoryWriter) Write(_ context.Context, record Record) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := uuid.NewString()
	w.records[id] = record
	return id, nil
}

// Get returns the stored record by ID.
func (w *InMemoryWriter) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.records[id]
	return record, ok
}

// Len reports the number of stored records.
func (w *InMemoryWriter) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.records)
}
