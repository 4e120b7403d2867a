package service

import (
	"context"
	"sort"
	"time"

	"memgate/internal/registry/models"
	"memgate/pkg/requestcontext"
)

// TypeActivity aggregates sessions and entries for one client type.
type TypeActivity struct {
	ClientType string `json:"client_type"`
	Entries    int    `json:"entries"`
	Sessions   int    `json:"sessions"`
}

// StatusCount is the number of entries currently in one trust status.
type StatusCount struct {
	Status  models.Status `json:"status"`
	Entries int           `json:"entries"`
}

// ActivityStats is the admin analytics payload for a time window.
type ActivityStats struct {
	WindowDays          int             `json:"period_days"`
	ByClientType        []TypeActivity  `json:"client_type_stats"`
	ByStatus            []StatusCount   `json:"status_stats"`
	RecentRegistrations []*models.Entry `json:"recent_registrations"`
}

const recentRegistrationsLimit = 10

// Stats aggregates registry and session activity over the trailing window.
// Reads only; the detection path never consumes these numbers.
func (s *Service) Stats(ctx context.Context, windowDays int) (*ActivityStats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	now := requestcontext.Now(ctx)
	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	entries, err := s.store.List(ctx, models.ListFilter{})
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	sessionCounts := map[string]int{}
	if s.sessions != nil {
		byEntry, err := s.sessions.CountByEntrySince(ctx, since)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		for _, entry := range entries {
			sessionCounts[entry.ClientType] += byEntry[entry.ID]
		}
	}

	typeEntries := map[string]int{}
	statusEntries := map[models.Status]int{}
	var recent []*models.Entry
	for _, entry := range entries {
		typeEntries[entry.ClientType]++
		statusEntries[entry.Status]++
		if entry.FirstSeenAt.After(since) {
			recent = append(recent, entry)
		}
	}

	stats := &ActivityStats{WindowDays: windowDays}
	for clientType, count := range typeEntries {
		stats.ByClientType = append(stats.ByClientType, TypeActivity{
			ClientType: clientType,
			Entries:    count,
			Sessions:   sessionCounts[clientType],
		})
	}
	sort.Slice(stats.ByClientType, func(i, j int) bool {
		return stats.ByClientType[i].ClientType < stats.ByClientType[j].ClientType
	})
	for status, count := range statusEntries {
		stats.ByStatus = append(stats.ByStatus, StatusCount{Status: status, Entries: count})
	}
	sort.Slice(stats.ByStatus, func(i, j int) bool {
		return stats.ByStatus[i].Status < stats.ByStatus[j].Status
	})

	// entries come back newest-first from the stores
	if len(recent) > recentRegistrationsLimit {
		recent = recent[:recentRegistrationsLimit]
	}
	stats.RecentRegistrations = recent
	return stats, nil
}
