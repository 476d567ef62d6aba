package handlers

import (
	"net/http"

	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/utils"
	"github.com/vendalink/ordersync/internal/store"
)

// HealthHandler handles liveness and readiness probes
type HealthHandler struct {
	store *store.SQLStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s *store.SQLStore) *HealthHandler {
	return &HealthHandler{store: s}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. Readiness requires a reachable database.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		utils.WriteError(w, errors.Wrap(err, errors.ErrCodeInternal,
			"database unreachable", http.StatusServiceUnavailable))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
