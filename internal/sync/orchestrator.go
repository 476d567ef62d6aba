package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/domain/syncstatus"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/metrics"
)

// Connector is the per-channel adapter driven by the orchestrator. Discover
// returns the identifiers changed since the given time (nil means full
// history); FetchDetails resolves identifiers into canonical orders, calling
// onProgress as work completes.
type Connector interface {
	Provider() string
	Discover(ctx context.Context, acct *account.Account, since *time.Time) ([]string, error)
	FetchDetails(ctx context.Context, acct *account.Account, ids []string, onProgress func(done, total int)) ([]*order.Order, error)
}

// UpdateCheck is the per-account result of a discovery-only pass.
type UpdateCheck struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Pending   int    `json:"pending"`
	Error     string `json:"error,omitempty"`
}

// Orchestrator drives the sync pipeline per account: discovery, detail
// fetch, batched persistence, watermark advance. Failures are converted to
// terminal status updates and never escape to sibling accounts.
type Orchestrator struct {
	accounts   account.Repository
	orders     order.Repository
	statuses   syncstatus.Repository
	tracker    *JobTracker
	connectors map[string]Connector
	cfg        config.SyncConfig
	logger     *logger.Logger
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(
	accounts account.Repository,
	orders order.Repository,
	statuses syncstatus.Repository,
	tracker *JobTracker,
	cfg config.SyncConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		accounts:   accounts,
		orders:     orders,
		statuses:   statuses,
		tracker:    tracker,
		connectors: make(map[string]Connector),
		cfg:        cfg,
		logger:     log,
	}
}

// RegisterConnector installs a channel adapter.
func (o *Orchestrator) RegisterConnector(c Connector) {
	o.connectors[c.Provider()] = c
}

// StartSync launches a background sync job for one account and returns its
// job id immediately. A second trigger while the account's job is running is
// rejected with a conflict.
func (o *Orchestrator) StartSync(ctx context.Context, userID int64, provider, accountID string) (string, error) {
	acct, err := o.accounts.Get(ctx, userID, provider, accountID)
	if err != nil {
		return "", errors.NotFound("Account")
	}
	if acct.Status != account.StatusActive {
		return "", errors.AccountInactive(provider, accountID)
	}

	jobID := uuid.NewString()
	if !o.tracker.TryStart(userID, provider, accountID, jobID) {
		return "", errors.SyncAlreadyRunning(provider, accountID)
	}

	// Detached from the request context: the job outlives the HTTP call
	// and has no cancellation beyond per-request timeouts.
	go func() {
		defer o.tracker.Finish(userID, provider, accountID)
		o.runAccount(context.Background(), acct)
	}()

	return jobID, nil
}

// SyncAll synchronizes every active account of one user sequentially. One
// account's failure is recorded in its status and the loop continues.
func (o *Orchestrator) SyncAll(ctx context.Context, userID int64) error {
	accounts, err := o.accounts.List(ctx, userID)
	if err != nil {
		return err
	}

	for _, acct := range accounts {
		if acct.Status != account.StatusActive {
			continue
		}
		if !o.tracker.TryStart(acct.UserID, acct.Provider, acct.AccountID, uuid.NewString()) {
			o.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID).
				Info("skipping account, sync already running")
			continue
		}
		o.runAccount(ctx, acct)
		o.tracker.Finish(acct.UserID, acct.Provider, acct.AccountID)
	}

	return nil
}

// CheckUpdates runs discovery only and reports the pending change count per
// active account. Nothing is fetched or persisted.
func (o *Orchestrator) CheckUpdates(ctx context.Context, userID int64) ([]UpdateCheck, error) {
	accounts, err := o.accounts.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	var results []UpdateCheck
	for _, acct := range accounts {
		if acct.Status != account.StatusActive {
			continue
		}

		check := UpdateCheck{Provider: acct.Provider, AccountID: acct.AccountID}
		conn, ok := o.connectors[acct.Provider]
		if !ok {
			check.Error = fmt.Sprintf("no connector for provider %s", acct.Provider)
			results = append(results, check)
			continue
		}

		ids, err := conn.Discover(ctx, acct, o.sinceFor(acct))
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Pending = len(ids)
		}
		results = append(results, check)
	}

	return results, nil
}

// runAccount executes the full pipeline for one account. All failures end in
// a terminal error status; partial committed batches stay committed.
func (o *Orchestrator) runAccount(ctx context.Context, acct *account.Account) {
	start := time.Now()
	log := o.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID)

	if err := o.run(ctx, acct, start, log); err != nil {
		metrics.RecordSyncRun(acct.Provider, "failure", time.Since(start))
		log.ErrorWithErr(err, "sync failed")

		o.setStatus(ctx, acct, err.Error(), 100, true, 0)

		// Token failures already moved the account to reauth_required;
		// do not overwrite that transition with a plain error record.
		if !errors.IsCode(err, errors.ErrCodeAuthExpired) {
			if upErr := o.accounts.UpdateStatus(ctx, acct.UserID, acct.Provider, acct.AccountID, acct.Status, err.Error()); upErr != nil {
				log.ErrorWithErr(upErr, "failed to record sync error on account")
			}
		}
		return
	}

	metrics.RecordSyncRun(acct.Provider, "success", time.Since(start))
}

func (o *Orchestrator) run(ctx context.Context, acct *account.Account, syncStart time.Time, log *logger.Logger) error {
	conn, ok := o.connectors[acct.Provider]
	if !ok {
		return errors.Internal(fmt.Sprintf("no connector registered for provider %s", acct.Provider), nil)
	}
	if acct.Status != account.StatusActive {
		return errors.AccountInactive(acct.Provider, acct.AccountID)
	}

	o.setStatus(ctx, acct, "discovering changed orders", 5, false, 0)

	ids, err := conn.Discover(ctx, acct, o.sinceFor(acct))
	if err != nil {
		return err
	}
	log.Infof("discovery found %d orders", len(ids))

	if len(ids) == 0 {
		// Nothing changed; still advance the watermark so the next
		// incremental window starts here.
		if err := o.accounts.AdvanceWatermark(ctx, acct.UserID, acct.Provider, acct.AccountID, syncStart); err != nil {
			return err
		}
		o.setStatus(ctx, acct, "already up to date", 100, false, 0)
		return nil
	}

	o.setStatus(ctx, acct, fmt.Sprintf("found %d orders, fetching details", len(ids)), 20, false, 0)

	orders, err := conn.FetchDetails(ctx, acct, ids, func(done, total int) {
		progress := 20 + 60*done/total
		o.setStatus(ctx, acct, fmt.Sprintf("fetching order details (%d/%d)", done, total), progress, false, done)
	})
	if err != nil {
		return err
	}

	o.setStatus(ctx, acct, "saving orders", 80, false, len(orders))

	if err := o.persist(ctx, acct, orders); err != nil {
		return err
	}

	if err := o.accounts.AdvanceWatermark(ctx, acct.UserID, acct.Provider, acct.AccountID, syncStart); err != nil {
		return err
	}

	metrics.RecordsSynced(acct.Provider, len(orders))
	o.setStatus(ctx, acct, fmt.Sprintf("sync completed, %d orders updated", len(orders)), 100, false, len(orders))
	log.Infof("sync completed, %d orders in %s", len(orders), time.Since(syncStart).Round(time.Millisecond))
	return nil
}

// persist writes orders in bounded batches, upserting category reference
// documents first. A failed batch aborts the remaining ones so the watermark
// stays put and the next run reprocesses from the prior point.
func (o *Orchestrator) persist(ctx context.Context, acct *account.Account, orders []*order.Order) error {
	if err := o.orders.UpsertCategories(ctx, acct.UserID, collectCategories(orders)); err != nil {
		return err
	}

	batchSize := o.cfg.PersistBatchSize
	total := len(orders)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		if err := o.orders.UpsertBatch(ctx, acct.UserID, orders[start:end]); err != nil {
			return err
		}

		progress := 80 + 20*end/total
		o.setStatus(ctx, acct, fmt.Sprintf("saving orders (%d/%d)", end, total), progress, false, end)
	}

	return nil
}

func (o *Orchestrator) sinceFor(acct *account.Account) *time.Time {
	if acct.NeverSynced() {
		return nil
	}
	t := acct.LastSyncAt.Add(-o.cfg.IncrementalWindow)
	return &t
}

func (o *Orchestrator) setStatus(ctx context.Context, acct *account.Account, msg string, progress int, isError bool, records int) {
	err := o.statuses.Set(ctx, &syncstatus.SyncStatus{
		UserID:           acct.UserID,
		Provider:         acct.Provider,
		AccountID:        acct.AccountID,
		Message:          msg,
		Progress:         progress,
		IsError:          isError,
		RecordsProcessed: records,
		UpdatedAt:        time.Now(),
	})
	if err != nil {
		o.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID).
			ErrorWithErr(err, "failed to write sync status")
	}
}

func collectCategories(orders []*order.Order) []string {
	seen := make(map[string]bool)
	var names []string
	for _, o := range orders {
		for _, c := range o.Categories {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			names = append(names, c)
		}
	}
	return names
}
