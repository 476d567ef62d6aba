package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/api/middleware"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/pkg/validator"
	"github.com/vendalink/ordersync/internal/services"
	"github.com/vendalink/ordersync/internal/testutil"
)

// authed injects a user id the way the auth middleware would.
func authed(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAccountRouter(repo account.Repository) chi.Router {
	svc := services.NewAccountService(repo, testLog())
	h := handlers.NewAccountHandler(svc, validator.New())

	r := chi.NewRouter()
	r.Use(authed(1))
	r.Get("/accounts", h.List)
	r.Post("/accounts/{provider}/connect", h.Connect)
	r.Delete("/accounts/{provider}/{accountID}", h.Disconnect)
	return r
}

func TestConnectAccount(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	r := newAccountRouter(repo)

	body := `{"account_id":"12345","access_token":"tok","refresh_token":"ref","expires_in":3600}`
	req := httptest.NewRequest("POST", "/accounts/nuvemshop/connect", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Connect status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	stored, err := repo.Get(context.Background(), 1, account.ProviderNuvemshop, "12345")
	if err != nil {
		t.Fatalf("stored account: %v", err)
	}
	if stored.Status != account.StatusActive {
		t.Errorf("Status = %s, want active", stored.Status)
	}
	if stored.Credentials.AccessToken != "tok" {
		t.Errorf("AccessToken = %s, want tok", stored.Credentials.AccessToken)
	}

	// Credentials must never leak into the response body.
	if bytes.Contains(rec.Body.Bytes(), []byte("tok")) {
		t.Error("response body exposes the access token")
	}
}

func TestConnectUnknownProvider(t *testing.T) {
	r := newAccountRouter(testutil.NewMockAccountRepository())

	body := `{"account_id":"1","access_token":"tok"}`
	req := httptest.NewRequest("POST", "/accounts/mercadolivre/connect", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Connect status = %d, want 400", rec.Code)
	}
}

func TestConnectMissingToken(t *testing.T) {
	r := newAccountRouter(testutil.NewMockAccountRepository())

	body := `{"account_id":"1"}`
	req := httptest.NewRequest("POST", "/accounts/bling/connect", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Connect status = %d, want 400", rec.Code)
	}
}

func TestListAccounts(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	_ = repo.Upsert(context.Background(), &account.Account{
		UserID: 1, Provider: account.ProviderBling, AccountID: "b1", Status: account.StatusActive,
	})
	_ = repo.Upsert(context.Background(), &account.Account{
		UserID: 2, Provider: account.ProviderBling, AccountID: "b2", Status: account.StatusActive,
	})
	r := newAccountRouter(repo)

	req := httptest.NewRequest("GET", "/accounts", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("List status = %d, want 200", rec.Code)
	}

	var accounts []struct {
		Provider  string `json:"provider"`
		AccountID string `json:"account_id"`
	}
	decodeData(t, rec.Body, &accounts)
	if len(accounts) != 1 {
		t.Fatalf("List returned %d accounts, want 1", len(accounts))
	}
	if accounts[0].AccountID != "b1" {
		t.Errorf("AccountID = %s, want b1", accounts[0].AccountID)
	}
}

func TestDisconnectAccount(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	_ = repo.Upsert(context.Background(), &account.Account{
		UserID: 1, Provider: account.ProviderShopee, AccountID: "77", Status: account.StatusActive,
	})
	r := newAccountRouter(repo)

	req := httptest.NewRequest("DELETE", "/accounts/shopee/77", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Disconnect status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if _, err := repo.Get(context.Background(), 1, account.ProviderShopee, "77"); err == nil {
		t.Error("account still present after disconnect")
	}
}
