package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	engine "github.com/vendalink/ordersync/internal/sync"
)

// UpdatePoller periodically checks connected accounts for pending changes
// and optionally triggers syncs for the ones that have any.
type UpdatePoller struct {
	accounts account.Repository
	orch     *engine.Orchestrator
	cfg      config.WorkerConfig
	log      *logger.Logger
	cron     *cron.Cron
}

// NewUpdatePoller creates a new update poller
func NewUpdatePoller(accounts account.Repository, orch *engine.Orchestrator, cfg config.WorkerConfig, log *logger.Logger) *UpdatePoller {
	return &UpdatePoller{
		accounts: accounts,
		orch:     orch,
		cfg:      cfg,
		log:      log,
		cron:     cron.New(),
	}
}

// Start schedules the poll job. Returns an error if the schedule is invalid.
func (p *UpdatePoller) Start() error {
	if !p.cfg.Enabled {
		p.log.Info("update poller disabled")
		return nil
	}

	if _, err := p.cron.AddFunc(p.cfg.PollSchedule, p.poll); err != nil {
		return err
	}

	p.cron.Start()
	p.log.Infof("update poller started with schedule %s", p.cfg.PollSchedule)
	return nil
}

// Stop stops the scheduler and waits for a running poll to finish
func (p *UpdatePoller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

func (p *UpdatePoller) poll() {
	ctx := context.Background()

	accounts, err := p.accounts.ListAll(ctx)
	if err != nil {
		p.log.ErrorWithErr(err, "poller failed to list accounts")
		return
	}

	// Group by user so each user's accounts are checked in one pass
	userIDs := make([]int64, 0)
	seen := make(map[int64]bool)
	for _, a := range accounts {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			userIDs = append(userIDs, a.UserID)
		}
	}

	if p.cfg.MaxUsersBatch > 0 && len(userIDs) > p.cfg.MaxUsersBatch {
		userIDs = userIDs[:p.cfg.MaxUsersBatch]
	}

	for _, userID := range userIDs {
		checks, err := p.orch.CheckUpdates(ctx, userID)
		if err != nil {
			p.log.WithFields(map[string]interface{}{"user_id": userID}).
				ErrorWithErr(err, "poller update check failed")
			continue
		}

		for _, check := range checks {
			if check.Error != "" || check.Pending == 0 {
				continue
			}

			p.log.WithAccount(userID, check.Provider, check.AccountID).
				Info("pending changes detected")

			if p.cfg.AutoSync {
				if _, err := p.orch.StartSync(ctx, userID, check.Provider, check.AccountID); err != nil {
					p.log.WithAccount(userID, check.Provider, check.AccountID).
						ErrorWithErr(err, "poller failed to start sync")
				}
			}
		}
	}
}
