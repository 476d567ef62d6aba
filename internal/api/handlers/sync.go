package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendalink/ordersync/internal/api/dto"
	"github.com/vendalink/ordersync/internal/api/middleware"
	"github.com/vendalink/ordersync/internal/domain/syncstatus"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/utils"
	engine "github.com/vendalink/ordersync/internal/sync"
)

// SyncHandler handles synchronization requests
type SyncHandler struct {
	orch     *engine.Orchestrator
	statuses syncstatus.Repository
	log      *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(orch *engine.Orchestrator, statuses syncstatus.Repository, log *logger.Logger) *SyncHandler {
	return &SyncHandler{orch: orch, statuses: statuses, log: log}
}

// Trigger handles POST /api/v1/sync/{provider}/{accountID}. The sync runs
// in the background; the response only acknowledges the job.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	provider := chi.URLParam(r, "provider")
	accountID := chi.URLParam(r, "accountID")

	jobID, err := h.orch.StartSync(r.Context(), userID, provider, accountID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusAccepted, dto.SyncTriggeredResponse{
		JobID:     jobID,
		Provider:  provider,
		AccountID: accountID,
		Status:    "started",
	})
}

// TriggerAll handles POST /api/v1/sync. All of the user's accounts are
// synced sequentially in the background.
func (h *SyncHandler) TriggerAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	go func() {
		if err := h.orch.SyncAll(context.Background(), userID); err != nil {
			h.log.ErrorWithErr(err, "sync all failed")
		}
	}()

	utils.WriteSuccessWithMessage(w, http.StatusAccepted, "Sync started for all accounts", nil)
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	statuses, err := h.statuses.List(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, statuses)
}

// Updates handles GET /api/v1/sync/updates. It runs discovery only and
// reports whether each account has pending changes, without persisting.
func (h *SyncHandler) Updates(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	checks, err := h.orch.CheckUpdates(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, checks)
}
