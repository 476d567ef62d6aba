package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/domain/syncstatus"
	engine "github.com/vendalink/ordersync/internal/sync"
	"github.com/vendalink/ordersync/internal/testutil"
)

// stubConnector blocks FetchDetails until released so a job can be observed
// in its running state from the HTTP side.
type stubConnector struct {
	provider string
	ids      []string
	release  chan struct{}
}

func (s *stubConnector) Provider() string { return s.provider }

func (s *stubConnector) Discover(ctx context.Context, acct *account.Account, since *time.Time) ([]string, error) {
	return s.ids, nil
}

func (s *stubConnector) FetchDetails(ctx context.Context, acct *account.Account, ids []string, onProgress func(done, total int)) ([]*order.Order, error) {
	if s.release != nil {
		<-s.release
	}
	return nil, nil
}

type syncFixture struct {
	accounts *testutil.MockAccountRepository
	statuses *testutil.MockSyncStatusRepository
	router   chi.Router
}

func newSyncFixture(t *testing.T, conn engine.Connector) *syncFixture {
	t.Helper()
	f := &syncFixture{
		accounts: testutil.NewMockAccountRepository(),
		statuses: testutil.NewMockSyncStatusRepository(),
	}

	cfg := config.SyncConfig{
		TokenSafetyMargin: 300 * time.Second,
		IncrementalWindow: 30 * time.Minute,
		PersistBatchSize:  300,
		DiscoveryCap:      10000,
	}
	orch := engine.NewOrchestrator(f.accounts, testutil.NewMockOrderRepository(), f.statuses, engine.NewJobTracker(), cfg, testLog())
	if conn != nil {
		orch.RegisterConnector(conn)
	}

	h := handlers.NewSyncHandler(orch, f.statuses, testLog())
	r := chi.NewRouter()
	r.Use(authed(1))
	r.Post("/sync", h.TriggerAll)
	r.Get("/sync/status", h.Status)
	r.Get("/sync/updates", h.Updates)
	r.Post("/sync/{provider}/{accountID}", h.Trigger)
	f.router = r
	return f
}

func (f *syncFixture) seedAccount(t *testing.T, provider, accountID string) {
	t.Helper()
	err := f.accounts.Upsert(context.Background(), &account.Account{
		UserID:    1,
		Provider:  provider,
		AccountID: accountID,
		Status:    account.StatusActive,
		Credentials: account.Credentials{
			AccessToken: "tok", TokenIssuedAt: time.Now(), ExpiresIn: 3600,
		},
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func TestTriggerSyncAccepted(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	conn := &stubConnector{provider: account.ProviderBling, ids: []string{"1"}, release: release}
	f := newSyncFixture(t, conn)
	f.seedAccount(t, account.ProviderBling, "erp-1")

	req := httptest.NewRequest("POST", "/sync/bling/erp-1", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Trigger status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decodeData(t, rec.Body, &resp)
	if resp.JobID == "" {
		t.Error("Trigger returned empty job id")
	}
	if resp.Status != "started" {
		t.Errorf("Status = %s, want started", resp.Status)
	}
}

func TestTriggerSyncDuplicateConflict(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	conn := &stubConnector{provider: account.ProviderBling, ids: []string{"1"}, release: release}
	f := newSyncFixture(t, conn)
	f.seedAccount(t, account.ProviderBling, "erp-1")

	req := httptest.NewRequest("POST", "/sync/bling/erp-1", nil)
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("POST", "/sync/bling/erp-1", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate Trigger status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestTriggerSyncUnknownAccount(t *testing.T) {
	f := newSyncFixture(t, &stubConnector{provider: account.ProviderBling})

	req := httptest.NewRequest("POST", "/sync/bling/missing", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Trigger status = %d, want 404", rec.Code)
	}
}

func TestTriggerAllAccepted(t *testing.T) {
	f := newSyncFixture(t, &stubConnector{provider: account.ProviderBling})
	f.seedAccount(t, account.ProviderBling, "erp-1")

	req := httptest.NewRequest("POST", "/sync", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("TriggerAll status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
}

func TestSyncStatusListing(t *testing.T) {
	f := newSyncFixture(t, nil)
	_ = f.statuses.Set(context.Background(), &syncstatus.SyncStatus{
		UserID: 1, Provider: "bling", AccountID: "erp-1",
		Message: "sync complete", Progress: 100, RecordsProcessed: 12,
	})
	_ = f.statuses.Set(context.Background(), &syncstatus.SyncStatus{
		UserID: 2, Provider: "shopee", AccountID: "s1", Progress: 40,
	})

	req := httptest.NewRequest("GET", "/sync/status", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status status = %d, want 200", rec.Code)
	}

	var statuses []struct {
		Provider string `json:"provider"`
		Progress int    `json:"progress"`
	}
	decodeData(t, rec.Body, &statuses)
	if len(statuses) != 1 {
		t.Fatalf("Status returned %d entries, want 1", len(statuses))
	}
	if statuses[0].Provider != "bling" || statuses[0].Progress != 100 {
		t.Errorf("status = %+v", statuses[0])
	}
}

func TestSyncUpdates(t *testing.T) {
	conn := &stubConnector{provider: account.ProviderNuvemshop, ids: []string{"1", "2", "3"}}
	f := newSyncFixture(t, conn)
	f.seedAccount(t, account.ProviderNuvemshop, "777")

	req := httptest.NewRequest("GET", "/sync/updates", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Updates status = %d, want 200", rec.Code)
	}

	var checks []struct {
		Provider string `json:"provider"`
		Pending  int    `json:"pending"`
		Error    string `json:"error"`
	}
	decodeData(t, rec.Body, &checks)
	if len(checks) != 1 {
		t.Fatalf("Updates returned %d checks, want 1", len(checks))
	}
	if checks[0].Pending != 3 || checks[0].Error != "" {
		t.Errorf("check = %+v, want 3 pending", checks[0])
	}
}
