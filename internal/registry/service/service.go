// Package service orchestrates the client registry: idempotent upserts on
// every sighting, administrator-driven trust transitions, and listings for
// the admin API.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"memgate/internal/detect"
	"memgate/internal/registry/metrics"
	"memgate/internal/registry/models"
	dErrors "memgate/pkg/domain-errors"
	"memgate/pkg/platform/sentinel"
	"memgate/pkg/requestcontext"
)

// errNoop signals a same-state transition inside Execute. Callers translate
// it into returning the unchanged entry.
var errNoop = errors.New("transition is a no-op")

type Service struct {
	store    Store
	cache    StatusCache
	sessions SessionCounter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithStatusCache(cache StatusCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithSessionCounter(sessions SessionCounter) Option {
	return func(s *Service) { s.sessions = sessions }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("memgate/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert records a sighting of the identity. A new identifier creates an
// entry persisted directly at initialStatus (legal from unknown), so no
// reader can observe a bare unknown row; an existing identifier only moves
// last_seen_at. The bool reports creation.
func (s *Service) Upsert(ctx context.Context, identity detect.Identity, initialStatus models.Status) (*models.Entry, bool, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Upsert")
	defer span.End()

	now := requestcontext.Now(ctx)
	candidate, err := models.NewEntry(
		identity.ClientIdentifier, identity.ClientType,
		identity.ModelName, identity.ClientVersion,
		identity.Confidence, now,
	)
	if err != nil {
		return nil, false, err
	}
	if err := candidate.CanTransition(initialStatus); err != nil {
		return nil, false, err
	}
	candidate.ApplyTransition(initialStatus, now)

	entry, created, err := s.store.Upsert(ctx, candidate)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "registry upsert failed")
	}

	s.metrics.RecordUpsert(created)
	s.cacheStatus(ctx, entry)
	return entry, created, nil
}

// Transition moves an entry to target on behalf of actor. Same-state is a
// no-op returning the unchanged entry; an illegal edge fails with
// CodeInvalidTransition and mutates nothing.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target models.Status, actor string) (*models.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Transition")
	defer span.End()

	now := requestcontext.Now(ctx)
	entry, err := s.store.Execute(ctx, id,
		func(e *models.Entry) error {
			if e.Status == target {
				return errNoop
			}
			return e.CanTransition(target)
		},
		func(e *models.Entry) {
			e.ApplyTransition(target, now)
		},
	)
	if errors.Is(err, errNoop) {
		s.metrics.RecordTransition(string(target), "noop")
		return s.GetByID(ctx, id)
	}
	if err != nil {
		s.metrics.RecordTransition(string(target), "rejected")
		return nil, wrapStoreErr(err)
	}

	s.metrics.RecordTransition(string(target), "applied")
	s.logger.InfoContext(ctx, "registry status transition",
		"entry_id", entry.ID,
		"client_identifier", entry.ClientIdentifier,
		"status", entry.Status,
		"actor", actor,
	)
	s.cacheStatus(ctx, entry)
	return entry, nil
}

func (s *Service) Get(ctx context.Context, identifier string) (*models.Entry, error) {
	entry, err := s.store.Get(ctx, identifier)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return entry, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Entry, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown status filter")
	}
	return s.store.List(ctx, filter)
}

// ListQuarantined is the review queue: entries awaiting an administrator.
func (s *Service) ListQuarantined(ctx context.Context) ([]*models.Entry, error) {
	return s.store.List(ctx, models.ListFilter{Status: models.StatusQuarantined})
}

// MetadataUpdate carries the editable registry fields. Nil means unchanged.
type MetadataUpdate struct {
	ClientType        *string
	ModelName         *string
	DefaultConfidence *int
}

// UpdateMetadata edits descriptive fields; trust status is only reachable
// through Transition.
func (s *Service) UpdateMetadata(ctx context.Context, id uuid.UUID, update MetadataUpdate) (*models.Entry, error) {
	now := requestcontext.Now(ctx)
	entry, err := s.store.Execute(ctx, id,
		func(e *models.Entry) error {
			if update.ClientType != nil && *update.ClientType == "" {
				return dErrors.New(dErrors.CodeBadRequest, "client type cannot be empty")
			}
			if update.DefaultConfidence != nil && (*update.DefaultConfidence < 0 || *update.DefaultConfidence > 100) {
				return dErrors.New(dErrors.CodeBadRequest, "confidence must be between 0 and 100")
			}
			return nil
		},
		func(e *models.Entry) {
			if update.ClientType != nil {
				e.ClientType = *update.ClientType
			}
			if update.ModelName != nil {
				e.ModelName = *update.ModelName
			}
			if update.DefaultConfidence != nil {
				e.DefaultConfidence = *update.DefaultConfidence
			}
			e.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return entry, nil
}

// BulkResult reports a bulk-approve outcome.
type BulkResult struct {
	Approved int         `json:"approved"`
	Skipped  []uuid.UUID `json:"skipped,omitempty"`
}

// BulkApprove approves a batch from the quarantine queue. Entries that are
// already approved count as successes; entries missing or blocked-by-graph
// are reported back rather than failing the whole batch.
func (s *Service) BulkApprove(ctx context.Context, ids []uuid.UUID, actor string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no entry ids given")
	}

	result := &BulkResult{}
	for _, id := range ids {
		if _, err := s.Transition(ctx, id, models.StatusApproved, actor); err != nil {
			s.logger.WarnContext(ctx, "bulk approve skipped entry", "entry_id", id, "error", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.Approved++
	}
	return result, nil
}

// CachedStatus consults the status cache only. Used by the quarantine
// workflow during store outages; returns ok=false when nothing is cached.
func (s *Service) CachedStatus(ctx context.Context, identifier string) (models.Status, bool) {
	if s.cache == nil {
		return "", false
	}
	status, ok, err := s.cache.GetStatus(ctx, identifier)
	if err != nil {
		s.metrics.RecordCacheError()
		return "", false
	}
	return status, ok
}

func (s *Service) cacheStatus(ctx context.Context, entry *models.Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetStatus(ctx, entry.ClientIdentifier, entry.Status); err != nil {
		s.metrics.RecordCacheError()
		s.logger.WarnContext(ctx, "status cache write failed",
			"client_identifier", entry.ClientIdentifier, "error", err)
	}
}

func wrapStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "registry entry not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry store unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
	}
}
