package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dErrors "memgate/pkg/domain-errors"
)

func TestStatusGraph(t *testing.T) {
	legal := map[Status][]Status{
		StatusUnknown:     {StatusQuarantined},
		StatusQuarantined: {StatusApproved, StatusBlocked},
		StatusApproved:    {StatusBlocked},
		StatusBlocked:     {StatusApproved},
	}
	all := []Status{StatusUnknown, StatusQuarantined, StatusApproved, StatusBlocked}

	for from, targets := range legal {
		allowed := map[Status]bool{}
		for _, target := range targets {
			allowed[target] = true
		}
		for _, target := range all {
			got := from.CanTransitionTo(target)
			require.Equalf(t, allowed[target], got, "%s -> %s", from, target)
		}
	}
}

func TestSameStateNotInGraph(t *testing.T) {
	for _, status := range []Status{StatusUnknown, StatusQuarantined, StatusApproved, StatusBlocked} {
		require.Falsef(t, status.CanTransitionTo(status), "%s -> %s should not be a graph edge", status, status)
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("empty identifier rejected", func(t *testing.T) {
		_, err := NewEntry("", "claude-code", "", "", 95, now)
		require.Error(t, err)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("empty client type defaults to unknown", func(t *testing.T) {
		entry, err := NewEntry("anon-abc123def456", "", "", "", 0, now)
		require.NoError(t, err)
		require.Equal(t, "unknown", entry.ClientType)
	})

	t.Run("starts in unknown with matching timestamps", func(t *testing.T) {
		entry, err := NewEntry("ollama-llama3", "ollama", "llama3", "", 95, now)
		require.NoError(t, err)
		require.Equal(t, StatusUnknown, entry.Status)
		require.Equal(t, now, entry.FirstSeenAt)
		require.Equal(t, now, entry.LastSeenAt)
		require.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
	})
}

func TestCanTransition(t *testing.T) {
	now := time.Now().UTC()
	entry, err := NewEntry("claude-code", "claude-code", "", "", 95, now)
	require.NoError(t, err)

	t.Run("invalid target status is a bad request", func(t *testing.T) {
		err := entry.CanTransition(Status("frozen"))
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("illegal edge is an invalid transition", func(t *testing.T) {
		err := entry.CanTransition(StatusApproved)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("legal edge applies", func(t *testing.T) {
		require.NoError(t, entry.CanTransition(StatusQuarantined))
		later := now.Add(time.Minute)
		entry.ApplyTransition(StatusQuarantined, later)
		require.Equal(t, StatusQuarantined, entry.Status)
		require.Equal(t, later, entry.UpdatedAt)
		require.Equal(t, now, entry.FirstSeenAt)
	})
}

func TestTouch(t *testing.T) {
	now := time.Now().UTC()
	entry, err := NewEntry("claude-code", "claude-code", "", "", 95, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	entry.Touch(later)
	require.Equal(t, later, entry.LastSeenAt)
	require.Equal(t, now, entry.FirstSeenAt)
	require.Equal(t, StatusUnknown, entry.Status)
}

func TestListFilterMatches(t *testing.T) {
	now := time.Now().UTC()
	entry := &Entry{
		ClientIdentifier: "ollama-llama3",
		ClientType:       "ollama",
		ModelName:        "llama3",
		Status:           StatusQuarantined,
		FirstSeenAt:      now,
	}

	require.True(t, ListFilter{}.Matches(entry))
	require.True(t, ListFilter{Status: StatusQuarantined, ClientType: "ollama", ModelName: "llama3"}.Matches(entry))
	require.False(t, ListFilter{Status: StatusApproved}.Matches(entry))
	require.False(t, ListFilter{ClientType: "claude-code"}.Matches(entry))
	require.False(t, ListFilter{ModelName: "phi3"}.Matches(entry))
}
