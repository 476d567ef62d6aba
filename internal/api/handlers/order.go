package handlers

import (
	"net/http"

	"github.com/vendalink/ordersync/internal/api/middleware"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/utils"
)

// OrderHandler handles order listing requests
type OrderHandler struct {
	orders order.Repository
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders order.Repository) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	params := utils.ParsePaginationParams(r)
	filter := order.Filter{
		Provider: r.URL.Query().Get("provider"),
		Status:   r.URL.Query().Get("status"),
	}

	orders, total, err := h.orders.List(r.Context(), userID, filter, params.PageSize, params.Offset)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK,
		utils.NewPaginatedResponse(orders, params.Page, params.PageSize, total))
}
