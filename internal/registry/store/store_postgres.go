package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"memgate/internal/registry/models"
	"memgate/pkg/platform/sentinel"
)

// Postgres persists registry entries. Upsert is a single statement keyed on
// the client_identifier unique constraint, so concurrent first sightings
// collapse to one row; transitions run in a row-locked transaction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS client_registry (
	id UUID PRIMARY KEY,
	client_identifier TEXT NOT NULL UNIQUE,
	client_type TEXT NOT NULL,
	model_name TEXT NOT NULL DEFAULT '',
	client_version TEXT NOT NULL DEFAULT '',
	endpoint_pattern TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	auto_approved BOOLEAN NOT NULL DEFAULT FALSE,
	default_confidence INT NOT NULL DEFAULT 0,
	first_seen_at TIMESTAMPTZ NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_client_registry_status ON client_registry (status);
CREATE INDEX IF NOT EXISTS idx_client_registry_type_status ON client_registry (client_type, status);
`

// EnsureSchema creates the registry table if missing. Called from main and
// from integration test setup.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure client_registry schema: %w", err)
	}
	return nil
}

const entryColumns = `id, client_identifier, client_type, model_name, client_version,
	endpoint_pattern, status, auto_approved, default_confidence,
	first_seen_at, last_seen_at, updated_at`

func (p *Postgres) Upsert(ctx context.Context, candidate *models.Entry) (*models.Entry, bool, error) {
	// xmax = 0 discriminates a fresh insert from a conflict update.
	query := `
		INSERT INTO client_registry (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (client_identifier)
		DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
		RETURNING ` + entryColumns + `, (xmax = 0) AS inserted
	`
	row := p.db.QueryRowContext(ctx, query,
		candidate.ID, candidate.ClientIdentifier, candidate.ClientType,
		candidate.ModelName, candidate.ClientVersion, candidate.EndpointPattern,
		candidate.Status, candidate.AutoApproved, candidate.DefaultConfidence,
		candidate.FirstSeenAt, candidate.LastSeenAt, candidate.UpdatedAt,
	)

	var entry models.Entry
	var created bool
	if err := scanEntry(row, &entry, &created); err != nil {
		return nil, false, fmt.Errorf("upsert registry entry: %w: %w", sentinel.ErrUnavailable, err)
	}
	return &entry, created, nil
}

func (p *Postgres) Get(ctx context.Context, identifier string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM client_registry WHERE client_identifier = $1`
	return p.getOne(ctx, query, identifier)
}

func (p *Postgres) GetByID(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM client_registry WHERE id = $1`
	return p.getOne(ctx, query, id)
}

func (p *Postgres) getOne(ctx context.Context, query string, arg any) (*models.Entry, error) {
	var entry models.Entry
	row := p.db.QueryRowContext(ctx, query, arg)
	if err := scanEntry(row, &entry, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get registry entry: %w", err)
	}
	return &entry, nil
}

func (p *Postgres) List(ctx context.Context, filter models.ListFilter) ([]*models.Entry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM client_registry
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR client_type = $2)
		  AND ($3 = '' OR model_name = $3)
		ORDER BY first_seen_at DESC
	`
	rows, err := p.db.QueryContext(ctx, query, string(filter.Status), filter.ClientType, filter.ModelName)
	if err != nil {
		return nil, fmt.Errorf("list registry entries: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		var entry models.Entry
		if err := scanEntry(rows, &entry, nil); err != nil {
			return nil, fmt.Errorf("scan registry entry: %w", err)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// GetByIDs fetches a batch of entries for bulk administrative actions.
func (p *Postgres) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Entry, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `SELECT ` + entryColumns + ` FROM client_registry WHERE id = ANY($1)`
	rows, err := p.db.QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("get registry entries by ids: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		var entry models.Entry
		if err := scanEntry(rows, &entry, nil); err != nil {
			return nil, fmt.Errorf("scan registry entry: %w", err)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// Execute runs validate-then-mutate atomically against one entry, holding a
// row lock for both steps. A validation error rolls back with the row
// untouched.
func (p *Postgres) Execute(ctx context.Context, id uuid.UUID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var entry models.Entry
	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM client_registry WHERE id = $1 FOR UPDATE`, id)
	if err := scanEntry(row, &entry, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock registry entry: %w", err)
	}

	if err := validate(&entry); err != nil {
		return nil, err
	}
	mutate(&entry)

	_, err = tx.ExecContext(ctx, `
		UPDATE client_registry
		SET client_type = $2, model_name = $3, client_version = $4,
		    endpoint_pattern = $5, status = $6, auto_approved = $7,
		    default_confidence = $8, last_seen_at = $9, updated_at = $10
		WHERE id = $1
	`, entry.ID, entry.ClientType, entry.ModelName, entry.ClientVersion,
		entry.EndpointPattern, entry.Status, entry.AutoApproved,
		entry.DefaultConfidence, entry.LastSeenAt, entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update registry entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition tx: %w", err)
	}
	return &entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, entry *models.Entry, created *bool) error {
	dest := []any{
		&entry.ID, &entry.ClientIdentifier, &entry.ClientType, &entry.ModelName,
		&entry.ClientVersion, &entry.EndpointPattern, &entry.Status,
		&entry.AutoApproved, &entry.DefaultConfidence,
		&entry.FirstSeenAt, &entry.LastSeenAt, &entry.UpdatedAt,
	}
	if created != nil {
		dest = append(dest, created)
	}
	return row.Scan(dest...)
}
