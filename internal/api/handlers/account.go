package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vendalink/ordersync/internal/api/dto"
	"github.com/vendalink/ordersync/internal/api/middleware"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/utils"
	"github.com/vendalink/ordersync/internal/pkg/validator"
)

// AccountHandler handles connected account requests
type AccountHandler struct {
	accounts  account.Service
	validator *validator.Validator
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts account.Service, v *validator.Validator) *AccountHandler {
	return &AccountHandler{accounts: accounts, validator: v}
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	accounts, err := h.accounts.List(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewAccountResponseList(accounts))
}

// Connect handles POST /api/v1/accounts/{provider}/connect
func (h *AccountHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	provider := chi.URLParam(r, "provider")

	var req dto.ConnectAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	creds := account.Credentials{
		AccessToken:   req.AccessToken,
		RefreshToken:  req.RefreshToken,
		TokenIssuedAt: time.Now(),
		ExpiresIn:     req.ExpiresIn,
	}

	acct, err := h.accounts.Connect(r.Context(), userID, provider, req.AccountID, creds)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.NewAccountResponse(acct))
}

// Disconnect handles DELETE /api/v1/accounts/{provider}/{accountID}
func (h *AccountHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	provider := chi.URLParam(r, "provider")
	accountID := chi.URLParam(r, "accountID")

	if err := h.accounts.Disconnect(r.Context(), userID, provider, accountID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Account disconnected", nil)
}
