package sessionlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"memgate/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_sessions (
    id            UUID PRIMARY KEY,
    entry_id      UUID NOT NULL,
    detected_via  TEXT NOT NULL,
    confidence    INTEGER NOT NULL,
    endpoint_path TEXT NOT NULL DEFAULT '',
    user_agent    TEXT NOT NULL DEFAULT '',
    remote_addr   TEXT NOT NULL DEFAULT '',
    observed_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_client_sessions_entry_id ON client_sessions (entry_id);
CREATE INDEX IF NOT EXISTS idx_client_sessions_observed_at ON client_sessions (observed_at);
`

// PostgresStore is the durable session log.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the session table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensuring session schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, session Session) error {
	const query = `
		INSERT INTO client_sessions
		    (id, entry_id, detected_via, confidence, endpoint_path, user_agent, remote_addr, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.EntryID, session.DetectedVia, session.Confidence,
		session.EndpointPath, session.UserAgent, session.RemoteAddr, session.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("appending session: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ListByEntry(ctx context.Context, entryID uuid.UUID, limit int) ([]Session, error) {
	query := `
		SELECT id, entry_id, detected_via, confidence, endpoint_path, user_agent, remote_addr, observed_at
		FROM client_sessions
		WHERE entry_id = $1
		ORDER BY observed_at DESC`
	args := []any{entryID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID, &session.EntryID, &session.DetectedVia, &session.Confidence,
			&session.EndpointPath, &session.UserAgent, &session.RemoteAddr, &session.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT id, entry_id, detected_via, confidence, endpoint_path, user_agent, remote_addr, observed_at
		FROM client_sessions
		ORDER BY observed_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID, &session.EntryID, &session.DetectedVia, &session.Confidence,
			&session.EndpointPath, &session.UserAgent, &session.RemoteAddr, &session.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) CountByEntrySince(ctx context.Context, since time.Time) (map[uuid.UUID]int, error) {
	const query = `
		SELECT entry_id, COUNT(*)
		FROM client_sessions
		WHERE observed_at >= $1
		GROUP BY entry_id`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var entryID uuid.UUID
		var count int
		if err := rows.Scan(&entryID, &count); err != nil {
			return nil, fmt.Errorf("scanning session count: %w", err)
		}
		counts[entryID] = count
	}
	return counts, rows.Err()
}
