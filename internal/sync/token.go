package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/metrics"
)

// RefreshFunc exchanges a refresh token for fresh credentials at the
// provider's token endpoint. The account is passed for providers whose
// exchange needs the shop or seller identity alongside the token.
type RefreshFunc func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error)

// TokenManager hands out usable access tokens, refreshing them ahead of
// expiry. Refreshes for the same account are serialized through a per-account
// mutex so concurrent callers never race two refresh requests against a
// provider that rotates refresh tokens on use.
type TokenManager struct {
	accounts   account.Repository
	refreshers map[string]RefreshFunc
	margin     time.Duration
	logger     *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenManager creates a token manager. margin is subtracted from each
// token's lifetime so tokens are refreshed before they can expire mid-request.
func NewTokenManager(accounts account.Repository, margin time.Duration, log *logger.Logger) *TokenManager {
	return &TokenManager{
		accounts:   accounts,
		refreshers: make(map[string]RefreshFunc),
		margin:     margin,
		logger:     log,
		locks:      make(map[string]*sync.Mutex),
	}
}

// RegisterRefresher installs the refresh exchange for one provider.
func (m *TokenManager) RegisterRefresher(provider string, fn RefreshFunc) {
	m.refreshers[provider] = fn
}

// ValidToken returns an access token guaranteed to remain valid for at least
// the configured margin. If the stored token is too close to expiry it is
// refreshed and the new credentials are persisted before returning. Accounts
// in reauth_required state are rejected without any provider call.
func (m *TokenManager) ValidToken(ctx context.Context, acct *account.Account) (string, error) {
	if acct.Status == account.StatusReauthRequired {
		return "", errors.AccountInactive(acct.Provider, acct.AccountID)
	}

	if !m.expiringSoon(acct.Credentials, time.Now()) {
		return acct.Credentials.AccessToken, nil
	}

	lock := m.accountLock(acct.UserID, acct.Provider, acct.AccountID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent caller may have already
	// refreshed while we waited.
	fresh, err := m.accounts.Get(ctx, acct.UserID, acct.Provider, acct.AccountID)
	if err != nil {
		return "", err
	}
	if fresh.Status == account.StatusReauthRequired {
		return "", errors.AccountInactive(acct.Provider, acct.AccountID)
	}
	if !m.expiringSoon(fresh.Credentials, time.Now()) {
		acct.Credentials = fresh.Credentials
		return fresh.Credentials.AccessToken, nil
	}

	return m.refresh(ctx, acct, fresh.Credentials)
}

// refresh performs the token exchange and persists the outcome. The caller
// must hold the account lock.
func (m *TokenManager) refresh(ctx context.Context, acct *account.Account, creds account.Credentials) (string, error) {
	fn, ok := m.refreshers[acct.Provider]
	if !ok {
		return "", errors.Internal(fmt.Sprintf("no token refresher registered for provider %s", acct.Provider), nil)
	}

	log := m.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID)
	log.Debug("access token expiring, refreshing")

	next, err := fn(ctx, acct, creds)
	if err != nil {
		metrics.RecordTokenRefresh(acct.Provider, "failure")
		log.ErrorWithErr(err, "token refresh rejected, marking account for reauthorization")

		appErr := errors.AuthenticationExpired(acct.Provider, err)
		if stErr := m.accounts.UpdateStatus(ctx, acct.UserID, acct.Provider, acct.AccountID, account.StatusReauthRequired, appErr.Message); stErr != nil {
			log.ErrorWithErr(stErr, "failed to persist reauth_required status")
		}
		acct.Status = account.StatusReauthRequired
		acct.Credentials = account.Credentials{}
		return "", appErr
	}

	if next.TokenIssuedAt.IsZero() {
		next.TokenIssuedAt = time.Now()
	}
	if err := m.accounts.UpdateCredentials(ctx, acct.UserID, acct.Provider, acct.AccountID, next); err != nil {
		metrics.RecordTokenRefresh(acct.Provider, "failure")
		return "", err
	}

	metrics.RecordTokenRefresh(acct.Provider, "success")
	acct.Credentials = next
	return next.AccessToken, nil
}

// expiringSoon reports whether the token's remaining lifetime is inside the
// safety margin. A token with no recorded lifetime is treated as expired.
func (m *TokenManager) expiringSoon(creds account.Credentials, now time.Time) bool {
	if creds.AccessToken == "" || creds.ExpiresIn <= 0 {
		return true
	}
	age := now.Sub(creds.TokenIssuedAt)
	return age > time.Duration(creds.ExpiresIn)*time.Second-m.margin
}

func (m *TokenManager) accountLock(userID int64, provider, accountID string) *sync.Mutex {
	key := fmt.Sprintf("%d/%s/%s", userID, provider, accountID)
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}
