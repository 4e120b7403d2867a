//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memgate/internal/registry/models"
	"memgate/internal/registry/store"
	"memgate/pkg/platform/sentinel"
	"memgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "client_registry"))
}

func (s *PostgresStoreSuite) newEntry(identifier string) *models.Entry {
	entry, err := models.NewEntry(identifier, "ollama", "llama3", "", 95, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	entry.Status = models.StatusQuarantined
	return entry
}

func (s *PostgresStoreSuite) TestUpsert() {
	entry, created, err := s.store.Upsert(s.ctx, s.newEntry("ollama-llama3"))
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.StatusQuarantined, entry.Status)

	s.Run("second sighting touches instead of creating", func() {
		candidate := s.newEntry("ollama-llama3")
		candidate.LastSeenAt = candidate.LastSeenAt.Add(time.Minute)

		again, created, err := s.store.Upsert(s.ctx, candidate)
		s.Require().NoError(err)
		s.False(created)
		s.Equal(entry.ID, again.ID)
		s.True(again.LastSeenAt.After(entry.LastSeenAt))
		s.True(again.FirstSeenAt.Equal(entry.FirstSeenAt))
	})
}

// An unreachable database surfaces as ErrUnavailable without losing the
// driver's cause, so degraded-mode logs show what actually failed.
func (s *PostgresStoreSuite) TestUpsertUnavailableKeepsCause() {
	db, err := sql.Open("pgx", s.postgres.DSN)
	s.Require().NoError(err)
	s.Require().NoError(db.Close())

	_, _, err = store.NewPostgres(db).Upsert(s.ctx, s.newEntry("ollama-llama3"))
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.ErrorContains(err, "database is closed")
}

// Concurrent first sightings of one identifier must resolve to a single
// row with exactly one creation reported.
func (s *PostgresStoreSuite) TestConcurrentUpsertCreatesOnce() {
	const goroutines = 20

	var wg sync.WaitGroup
	created := make(chan bool, goroutines)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, wasCreated, err := s.store.Upsert(s.ctx, s.newEntry("ollama-phi3"))
			s.NoError(err)
			created <- wasCreated
		}()
	}
	wg.Wait()
	close(created)

	creations := 0
	for wasCreated := range created {
		if wasCreated {
			creations++
		}
	}
	s.Equal(1, creations)

	entries, err := s.store.List(s.ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresStoreSuite) TestExecute() {
	entry, _, err := s.store.Upsert(s.ctx, s.newEntry("ollama-llama3"))
	s.Require().NoError(err)

	s.Run("validation failure rolls back", func() {
		_, err := s.store.Execute(s.ctx, entry.ID,
			func(e *models.Entry) error { return sentinel.ErrInvalidState },
			func(e *models.Entry) { e.Status = models.StatusApproved },
		)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		unchanged, err := s.store.Get(s.ctx, "ollama-llama3")
		s.Require().NoError(err)
		s.Equal(models.StatusQuarantined, unchanged.Status)
	})

	s.Run("mutation commits", func() {
		updated, err := s.store.Execute(s.ctx, entry.ID,
			func(e *models.Entry) error { return nil },
			func(e *models.Entry) { e.ApplyTransition(models.StatusApproved, time.Now().UTC()) },
		)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, updated.Status)
	})

	s.Run("missing id", func() {
		_, err := s.store.Execute(s.ctx, uuid.New(),
			func(e *models.Entry) error { return nil },
			func(e *models.Entry) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestGetByIDs() {
	first, _, err := s.store.Upsert(s.ctx, s.newEntry("ollama-llama3"))
	s.Require().NoError(err)
	second, _, err := s.store.Upsert(s.ctx, s.newEntry("ollama-phi3"))
	s.Require().NoError(err)

	entries, err := s.store.GetByIDs(s.ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *PostgresStoreSuite) TestListFilterAndOrdering() {
	older := s.newEntry("older")
	older.FirstSeenAt = older.FirstSeenAt.Add(-time.Hour)
	_, _, err := s.store.Upsert(s.ctx, older)
	s.Require().NoError(err)

	newer := s.newEntry("newer")
	newer.Status = models.StatusApproved
	_, _, err = s.store.Upsert(s.ctx, newer)
	s.Require().NoError(err)

	entries, err := s.store.List(s.ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("newer", entries[0].ClientIdentifier)

	approved, err := s.store.List(s.ctx, models.ListFilter{Status: models.StatusApproved})
	s.Require().NoError(err)
	s.Require().Len(approved, 1)
	s.Equal("newer", approved[0].ClientIdentifier)
}

func (s *PostgresStoreSuite) TestSeedIdempotent() {
	s.Require().NoError(store.SeedKnownClients(s.ctx, s.store, time.Now().UTC()))
	s.Require().NoError(store.SeedKnownClients(s.ctx, s.store, time.Now().UTC()))

	entries, err := s.store.List(s.ctx, models.ListFilter{Status: models.StatusApproved})
	s.Require().NoError(err)
	s.Len(entries, 6)
}
