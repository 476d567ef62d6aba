package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/testutil"
)

func TestHealthz(t *testing.T) {
	h := handlers.NewHealthHandler(testutil.NewTestStore(t))

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Healthz status = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	h := handlers.NewHealthHandler(testutil.NewTestStore(t))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Readyz status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}
