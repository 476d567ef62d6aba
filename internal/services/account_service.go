package services

import (
	"context"
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
)

type accountService struct {
	repo account.Repository
	log  *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(repo account.Repository, log *logger.Logger) account.Service {
	return &accountService{repo: repo, log: log}
}

func (s *accountService) Connect(ctx context.Context, userID int64, provider, accountID string, creds account.Credentials) (*account.Account, error) {
	if !account.KnownProvider(provider) {
		return nil, errors.BadRequest("unsupported provider: " + provider)
	}
	if creds.AccessToken == "" {
		return nil, errors.BadRequest("access token is required")
	}
	if creds.TokenIssuedAt.IsZero() {
		creds.TokenIssuedAt = time.Now()
	}

	acct := &account.Account{
		UserID:      userID,
		Provider:    provider,
		AccountID:   accountID,
		Status:      account.StatusActive,
		Credentials: creds,
	}

	if err := s.repo.Upsert(ctx, acct); err != nil {
		return nil, errors.DatabaseError("failed to store account", err)
	}

	s.log.WithAccount(userID, provider, accountID).Info("account connected")

	return s.repo.Get(ctx, userID, provider, accountID)
}

func (s *accountService) Disconnect(ctx context.Context, userID int64, provider, accountID string) error {
	if _, err := s.repo.Get(ctx, userID, provider, accountID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, userID, provider, accountID); err != nil {
		return errors.DatabaseError("failed to remove account", err)
	}

	s.log.WithAccount(userID, provider, accountID).Info("account disconnected")
	return nil
}

func (s *accountService) Get(ctx context.Context, userID int64, provider, accountID string) (*account.Account, error) {
	return s.repo.Get(ctx, userID, provider, accountID)
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*account.Account, error) {
	return s.repo.List(ctx, userID)
}
