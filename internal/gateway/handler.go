// Package gateway fronts the memory service. It resolves each caller's
// identity, admits it through the quarantine workflow, stamps provenance,
// and only then lets the write reach storage.
package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "memgate/pkg/domain-errors"
	"memgate/pkg/platform/httputil"
	"memgate/pkg/requestcontext"

	"memgate/internal/detect"
	"memgate/internal/memory"
	"memgate/internal/provenance"
	"memgate/internal/quarantine"
	"memgate/internal/sessionlog"
)

// Admitter admits resolved identities through the trust workflow.
type Admitter interface {
	Admit(ctx context.Context, identity detect.Identity) quarantine.Admission
	ShouldReject(adm quarantine.Admission) bool
}

// SessionRecorder appends to the session log without blocking.
type SessionRecorder interface {
	Record(session sessionlog.Session)
}

type Handler struct {
	detectCfg *detect.Config
	admitter  Admitter
	writer    memory.Writer
	sessions  SessionRecorder
	metrics   *Metrics
	logger    *slog.Logger
}

func NewHandler(
	detectCfg *detect.Config,
	admitter Admitter,
	writer memory.Writer,
	sessions SessionRecorder,
	metrics *Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		detectCfg: detectCfg,
		admitter:  admitter,
		writer:    writer,
		sessions:  sessions,
		metrics:   metrics,
		logger:    logger,
	}
}

type writeMemoryRequest struct {
	Content string `json:"content"`
}

type writeMemoryResponse struct {
	ID         string              `json:"id"`
	Provenance provenance.Snapshot `json:"provenance"`
}

// WriteMemory handles POST /mcp/{route}/memories/{user}. The route segment
// only matters to detection, which already ran in middleware.
func (h *Handler) WriteMemory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", requestcontext.RequestID(ctx))

	identity, ok := ClientFrom(ctx)
	if !ok {
		// Detection middleware is mandatory on this subtree.
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "client identity missing from request"))
		return
	}

	req, ok := httputil.Decode[writeMemoryRequest](w, r, logger)
	if !ok {
		return
	}
	if req.Content == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "content is required"))
		return
	}
	userID := chi.URLParam(r, "user")
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user is required"))
		return
	}

	admission := h.admitter.Admit(ctx, identity)
	if admission.Degraded {
		h.metrics.RecordDegradedWrite()
	}
	if h.admitter.ShouldReject(admission) {
		h.metrics.RecordRejection()
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "client is blocked"))
		return
	}

	snapshot := provenance.Stamp(identity, admission.EffectiveStatus, requestcontext.Now(ctx))

	id, err := h.writer.Write(ctx, memory.Record{
		Content:    req.Content,
		UserID:     userID,
		Provenance: snapshot,
	})
	if err != nil {
		h.metrics.RecordWrite("error")
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "storing memory"))
		return
	}
	h.metrics.RecordWrite("ok")

	h.recordSession(identity, admission, r)

	httputil.WriteJSON(w, http.StatusCreated, writeMemoryResponse{ID: id, Provenance: snapshot})
}

func (h *Handler) recordSession(identity detect.Identity, admission quarantine.Admission, r *http.Request) {
	// No registry entry to attribute the session to in degraded mode.
	if admission.Entry == nil {
		return
	}
	ctx := r.Context()
	h.sessions.Record(sessionlog.Session{
		ID:           uuid.New(),
		EntryID:      admission.Entry.ID,
		DetectedVia:  string(identity.DetectionMethod),
		Confidence:   identity.Confidence,
		EndpointPath: r.URL.Path,
		UserAgent:    requestcontext.UserAgent(ctx),
		RemoteAddr:   requestcontext.ClientIP(ctx),
		ObservedAt:   requestcontext.Now(ctx),
	})
}
