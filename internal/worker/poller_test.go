package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	engine "github.com/vendalink/ordersync/internal/sync"
	"github.com/vendalink/ordersync/internal/testutil"
)

// pollConnector counts discovery calls and signals when a background sync
// reaches the detail fetch, which only a started job does.
type pollConnector struct {
	provider string
	ids      []string

	mu            sync.Mutex
	discoverCalls int
	fetchOnce     sync.Once
	fetched       chan struct{}
}

func newPollConnector(provider string, ids []string) *pollConnector {
	return &pollConnector{provider: provider, ids: ids, fetched: make(chan struct{})}
}

func (c *pollConnector) Provider() string { return c.provider }

func (c *pollConnector) Discover(ctx context.Context, acct *account.Account, since *time.Time) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discoverCalls++
	return c.ids, nil
}

func (c *pollConnector) FetchDetails(ctx context.Context, acct *account.Account, ids []string, onProgress func(done, total int)) ([]*order.Order, error) {
	c.fetchOnce.Do(func() { close(c.fetched) })
	var orders []*order.Order
	for _, id := range ids {
		orders = append(orders, &order.Order{
			ID:          order.Key(c.provider, id),
			Provider:    c.provider,
			AccountID:   acct.AccountID,
			Status:      order.StatusPaid,
			GrossAmount: decimal.NewFromInt(10),
		})
	}
	return orders, nil
}

func (c *pollConnector) discovers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discoverCalls
}

type pollFixture struct {
	accounts *testutil.MockAccountRepository
	poller   *UpdatePoller
}

func newPollFixture(t *testing.T, conn engine.Connector, cfg config.WorkerConfig) *pollFixture {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: "json"})

	accounts := testutil.NewMockAccountRepository()
	orch := engine.NewOrchestrator(
		accounts,
		testutil.NewMockOrderRepository(),
		testutil.NewMockSyncStatusRepository(),
		engine.NewJobTracker(),
		config.SyncConfig{
			TokenSafetyMargin: 300 * time.Second,
			IncrementalWindow: 30 * time.Minute,
			PersistBatchSize:  300,
			DiscoveryCap:      10000,
		},
		log,
	)
	if conn != nil {
		orch.RegisterConnector(conn)
	}

	return &pollFixture{
		accounts: accounts,
		poller:   NewUpdatePoller(accounts, orch, cfg, log),
	}
}

func (f *pollFixture) seed(t *testing.T, userID int64, provider, accountID string) {
	t.Helper()
	err := f.accounts.Upsert(context.Background(), &account.Account{
		UserID:    userID,
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

func TestPollerAutoSyncTriggersPendingAccount(t *testing.T) {
	conn := newPollConnector(account.ProviderBling, []string{"1", "2"})
	f := newPollFixture(t, conn, config.WorkerConfig{AutoSync: true})
	f.seed(t, 1, account.ProviderBling, "erp-1")

	f.poller.poll()

	select {
	case <-conn.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("pending account never reached detail fetch")
	}
}

func TestPollerZeroPendingDoesNotSync(t *testing.T) {
	conn := newPollConnector(account.ProviderBling, nil)
	f := newPollFixture(t, conn, config.WorkerConfig{AutoSync: true})
	f.seed(t, 1, account.ProviderBling, "erp-1")

	f.poller.poll()

	// The only discovery is the update check itself; no job was started.
	if got := conn.discovers(); got != 1 {
		t.Errorf("discover calls = %d, want 1", got)
	}
	select {
	case <-conn.fetched:
		t.Error("sync started for an account with no pending changes")
	default:
	}
}

func TestPollerAutoSyncDisabledOnlyChecks(t *testing.T) {
	conn := newPollConnector(account.ProviderBling, []string{"1"})
	f := newPollFixture(t, conn, config.WorkerConfig{AutoSync: false})
	f.seed(t, 1, account.ProviderBling, "erp-1")

	f.poller.poll()

	if got := conn.discovers(); got != 1 {
		t.Errorf("discover calls = %d, want 1", got)
	}
	select {
	case <-conn.fetched:
		t.Error("sync started with auto-sync disabled")
	default:
	}
}

func TestPollerRespectsUserBatchCap(t *testing.T) {
	conn := newPollConnector(account.ProviderBling, nil)
	f := newPollFixture(t, conn, config.WorkerConfig{MaxUsersBatch: 2})
	f.seed(t, 1, account.ProviderBling, "a")
	f.seed(t, 2, account.ProviderBling, "b")
	f.seed(t, 3, account.ProviderBling, "c")

	f.poller.poll()

	if got := conn.discovers(); got != 2 {
		t.Errorf("discover calls = %d, want 2 (one per capped user)", got)
	}
}

func TestPollerStartDisabled(t *testing.T) {
	f := newPollFixture(t, nil, config.WorkerConfig{Enabled: false})

	if err := f.poller.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.poller.Stop()
}
