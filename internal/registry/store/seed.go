package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"memgate/internal/registry/models"
)

// Upserter is the slice of the store API seeding needs.
type Upserter interface {
	Upsert(ctx context.Context, candidate *models.Entry) (*models.Entry, bool, error)
}

type seedClient struct {
	identifier      string
	clientType      string
	modelName       string
	endpointPattern string
	confidence      int
}

// First-party roster. These ship pre-approved so known tools never pass
// through quarantine.
var knownClients = []seedClient{
	{"claude-code", "claude-code", "claude-3.5-sonnet", "/mcp/claude-code/sse/{user_id}", 95},
	{"claude-desktop", "claude-desktop", "claude-3.5-sonnet", "/mcp/claude-desktop/sse/{user_id}", 95},
	{"claude-vscode", "claude-vscode", "claude-3.5-sonnet", "/mcp/vscode-claude/sse/{user_id}", 95},
	{"vscode-gpt", "vscode-gpt", "gpt-4", "/mcp/vscode-gpt/sse/{user_id}", 95},
	{"ollama", "ollama", "", "/mcp/ollama/sse/{user_id}", 95},
	{"openmemory", "openmemory", "", "/mcp/openmemory/sse/{user_id}", 85},
}

// SeedKnownClients upserts the first-party roster as approved entries.
// Idempotent: identifiers that already exist are left untouched apart from
// last_seen_at, so an operator's block decision survives restarts.
func SeedKnownClients(ctx context.Context, s Upserter, now time.Time) error {
	for _, c := range knownClients {
		entry := &models.Entry{
			ID:                uuid.New(),
			ClientIdentifier:  c.identifier,
			ClientType:        c.clientType,
			ModelName:         c.modelName,
			EndpointPattern:   c.endpointPattern,
			Status:            models.StatusApproved,
			AutoApproved:      true,
			DefaultConfidence: c.confidence,
			FirstSeenAt:       now,
			LastSeenAt:        now,
			UpdatedAt:         now,
		}
		if _, _, err := s.Upsert(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
