package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memgate/pkg/platform/httputil"
)

// NewRouter assembles the public surface: the MCP subtree behind
// detection middleware, health and metrics endpoints, and the admin API
// when one is provided.
func NewRouter(h *Handler, admin http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestID)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/mcp", func(r chi.Router) {
		r.Use(h.Detection)
		r.Post("/{route}/memories/{user}", h.WriteMemory)
	})

	if admin != nil {
		r.Mount("/api/v1/admin", admin)
	}

	return r
}
