// Package handler exposes the registry's administrative HTTP API. All
// routes except the token exchange require an admin bearer token.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "memgate/pkg/domain-errors"
	"memgate/pkg/platform/httputil"

	"memgate/internal/registry/models"
	"memgate/internal/registry/service"
	"memgate/internal/sessionlog"
)

// Service is the registry surface the admin API drives.
type Service interface {
	List(ctx context.Context, filter models.ListFilter) ([]*models.Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, update service.MetadataUpdate) (*models.Entry, error)
	Transition(ctx context.Context, id uuid.UUID, target models.Status, actor string) (*models.Entry, error)
	ListQuarantined(ctx context.Context) ([]*models.Entry, error)
	BulkApprove(ctx context.Context, ids []uuid.UUID, actor string) (*service.BulkResult, error)
	Stats(ctx context.Context, windowDays int) (*service.ActivityStats, error)
}

// SessionReader lists recorded sessions for the admin surface.
type SessionReader interface {
	ListRecent(ctx context.Context, limit int) ([]sessionlog.Session, error)
	ListByEntry(ctx context.Context, entryID uuid.UUID, limit int) ([]sessionlog.Session, error)
}

type Handler struct {
	service      Service
	sessions     SessionReader
	logger       *slog.Logger
	signingKey   []byte
	adminKeyHash string
}

func New(svc Service, sessions SessionReader, logger *slog.Logger, signingKey []byte, adminKeyHash string) *Handler {
	return &Handler{
		service:      svc,
		sessions:     sessions,
		logger:       logger,
		signingKey:   signingKey,
		adminKeyHash: adminKeyHash,
	}
}

// Routes returns the admin router, intended to be mounted under
// /api/v1/admin.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/token", h.IssueToken)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)

		r.Get("/clients", h.ListClients)
		r.Get("/clients/{id}", h.GetClient)
		r.Put("/clients/{id}", h.UpdateClient)
		r.Post("/clients/{id}/approve", h.ApproveClient)
		r.Post("/clients/{id}/block", h.BlockClient)

		r.Get("/quarantine", h.ListQuarantine)
		r.Post("/quarantine/bulk-approve", h.BulkApprove)

		r.Get("/sessions", h.ListSessions)
		r.Get("/stats/activity", h.ActivityStats)
	})

	return r
}

type clientListResponse struct {
	Clients []*models.Entry `json:"clients"`
	Total   int             `json:"total"`
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{
		ClientType: q.Get("client_type"),
		ModelName:  q.Get("model_name"),
	}
	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.IsValid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown status "+raw))
			return
		}
		filter.Status = status
	}

	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, clientListResponse{Clients: entries, Total: len(entries)})
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

type updateClientRequest struct {
	ClientType        *string `json:"client_type,omitempty"`
	ModelName         *string `json:"model_name,omitempty"`
	DefaultConfidence *int    `json:"default_confidence,omitempty"`
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[updateClientRequest](w, r, h.logger)
	if !ok {
		return
	}

	entry, err := h.service.UpdateMetadata(r.Context(), id, service.MetadataUpdate{
		ClientType:        req.ClientType,
		ModelName:         req.ModelName,
		DefaultConfidence: req.DefaultConfidence,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) ApproveClient(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusApproved)
}

func (h *Handler) BlockClient(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusBlocked)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target models.Status) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Transition(r.Context(), id, target, actorFrom(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) ListQuarantine(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListQuarantined(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, clientListResponse{Clients: entries, Total: len(entries)})
}

type bulkApproveRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *Handler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[bulkApproveRequest](w, r, h.logger)
	if !ok {
		return
	}
	if len(req.IDs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ids is required"))
		return
	}

	result, err := h.service.BulkApprove(r.Context(), req.IDs, actorFrom(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type sessionListResponse struct {
	Sessions []sessionlog.Session `json:"sessions"`
	Total    int                  `json:"total"`
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	var (
		sessions []sessionlog.Session
		err      error
	)
	if raw := q.Get("entry_id"); raw != "" {
		entryID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entry_id must be a UUID"))
			return
		}
		sessions, err = h.sessions.ListByEntry(r.Context(), entryID, limit)
	} else {
		sessions, err = h.sessions.ListRecent(r.Context(), limit)
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing sessions"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionListResponse{Sessions: sessions, Total: len(sessions)})
}

func (h *Handler) ActivityStats(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "days must be a positive integer"))
			return
		}
		days = parsed
	}

	stats, err := h.service.Stats(r.Context(), days)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
