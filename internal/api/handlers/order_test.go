package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/testutil"
)

func newOrderRouter(repo order.Repository) chi.Router {
	r := chi.NewRouter()
	r.Use(authed(1))
	r.Get("/orders", handlers.NewOrderHandler(repo).List)
	return r
}

func seedOrders(t *testing.T, repo *testutil.MockOrderRepository) {
	t.Helper()
	orders := []*order.Order{
		{ID: "bling-1", Provider: "bling", Status: order.StatusPaid, GrossAmount: decimal.NewFromInt(100)},
		{ID: "bling-2", Provider: "bling", Status: order.StatusCancelled, GrossAmount: decimal.NewFromInt(50)},
		{ID: "shopee-3", Provider: "shopee", Status: order.StatusPaid, GrossAmount: decimal.NewFromInt(75)},
	}
	if err := repo.UpsertBatch(context.Background(), 1, orders); err != nil {
		t.Fatalf("seed orders: %v", err)
	}
}

func TestListOrders(t *testing.T) {
	repo := testutil.NewMockOrderRepository()
	seedOrders(t, repo)
	r := newOrderRouter(repo)

	req := httptest.NewRequest("GET", "/orders", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("List status = %d, want 200", rec.Code)
	}

	var page struct {
		Data       []order.Order `json:"data"`
		Page       int           `json:"page"`
		PageSize   int           `json:"page_size"`
		TotalItems int64         `json:"total_items"`
	}
	decodeData(t, rec.Body, &page)
	if page.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", page.TotalItems)
	}
	if page.Page != 1 || page.PageSize != 20 {
		t.Errorf("page = %d size = %d, want defaults 1/20", page.Page, page.PageSize)
	}
}

func TestListOrdersFiltered(t *testing.T) {
	repo := testutil.NewMockOrderRepository()
	seedOrders(t, repo)
	r := newOrderRouter(repo)

	req := httptest.NewRequest("GET", "/orders?provider=bling&status=paid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("List status = %d, want 200", rec.Code)
	}

	var page struct {
		Data []order.Order `json:"data"`
	}
	decodeData(t, rec.Body, &page)
	if len(page.Data) != 1 {
		t.Fatalf("filtered List returned %d orders, want 1", len(page.Data))
	}
	if page.Data[0].ID != "bling-1" {
		t.Errorf("order = %s, want bling-1", page.Data[0].ID)
	}
}

func TestListOrdersRequiresAuth(t *testing.T) {
	h := handlers.NewOrderHandler(testutil.NewMockOrderRepository())

	req := httptest.NewRequest("GET", "/orders", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("List without auth status = %d, want 401", rec.Code)
	}
}
