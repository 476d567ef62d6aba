package account

import (
	"context"
	"time"
)

// Repository defines the interface for account data access
type Repository interface {
	// Upsert creates or updates an account, keyed by (user, provider, account id)
	Upsert(ctx context.Context, a *Account) error

	// Get retrieves an account by provider and provider-assigned account id
	Get(ctx context.Context, userID int64, provider, accountID string) (*Account, error)

	// List retrieves all accounts for a user
	List(ctx context.Context, userID int64) ([]*Account, error)

	// ListAll retrieves every stored account across users (used by the poller)
	ListAll(ctx context.Context) ([]*Account, error)

	// Delete removes an account
	Delete(ctx context.Context, userID int64, provider, accountID string) error

	// UpdateCredentials atomically replaces the stored OAuth state
	UpdateCredentials(ctx context.Context, userID int64, provider, accountID string, creds Credentials) error

	// UpdateStatus transitions the account status, recording a diagnostic error
	UpdateStatus(ctx context.Context, userID int64, provider, accountID string, status Status, lastError string) error

	// AdvanceWatermark moves the last-sync watermark forward
	AdvanceWatermark(ctx context.Context, userID int64, provider, accountID string, syncedAt time.Time) error
}
