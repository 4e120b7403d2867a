package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

// ChromemWriter stores memories in an embedded chromem-go vector
// collection. Provenance is flattened into document metadata so it travels
// with the memory through later retrieval.
type ChromemWriter struct {
	collection *chromem.Collection
}

// NewChromemWriter opens (or creates) the collection in the given
// database. A nil embedding function falls back to chromem's default.
func NewChromemWriter(db *chromem.DB, collection string, embed chromem.EmbeddingFunc) (*ChromemWriter, error) {
	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening memory collection: %w", err)
	}
	return &ChromemWriter{collection: col}, nil
}

func (w *ChromemWriter) Write(ctx context.Context, record Record) (string, error) {
	id := uuid.NewString()
	doc := chromem.Document{
		ID:       id,
		Content:  record.Content,
		Metadata: provenanceMetadata(record),
	}
	if err := w.collection.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("writing memory: %w", err)
	}
	return id, nil
}

func provenanceMetadata(record Record) map[string]string {
	snap := record.Provenance
	md := map[string]string{
		"user_id":           record.UserID,
		"client_identifier": snap.ClientIdentifier,
		"client_type":       snap.ClientType,
		"detection_method":  snap.DetectionMethod,
		"confidence":        strconv.Itoa(snap.Confidence),
		"registry_status":   snap.RegistryStatus,
		"stamped_at":        snap.StampedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if snap.ModelName != "" {
		md["model_name"] = snap.ModelName
	}
	if snap.ClientVersion != "" {
		md["client_version"] = snap.ClientVersion
	}
	return md
}
