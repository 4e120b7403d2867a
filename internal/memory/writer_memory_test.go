package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memgate/internal/provenance"
)

func TestInMemoryWriter(t *testing.T) {
	writer := NewInMemoryWriter()

	record := Record{
		Content: "prefers dark mode",
		UserID:  "alice",
		Provenance: provenance.Snapshot{
			ClientIdentifier: "claude-code",
			RegistryStatus:   "approved",
			StampedAt:        time.Now().UTC(),
		},
	}

	id, err := writer.Write(context.Background(), record)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, ok := writer.Get(id)
	require.True(t, ok)
	require.Equal(t, "prefers dark mode", stored.Content)
	require.Equal(t, "approved", stored.Provenance.RegistryStatus)
	require.Equal(t, 1, writer.Len())

	_, ok = writer.Get("missing")
	require.False(t, ok)
}
