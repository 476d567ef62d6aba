package syncstatus

import (
	"context"
	"time"
)

// SyncStatus is the ephemeral progress record polled by clients. It is
// merge-written in place and never historized; it has no effect on the
// orchestration logic itself.
type SyncStatus struct {
	UserID           int64     `json:"user_id"`
	Provider         string    `json:"provider"`
	AccountID        string    `json:"account_id"`
	Message          string    `json:"message"`
	Progress         int       `json:"progress"`
	IsError          bool      `json:"is_error"`
	RecordsProcessed int       `json:"records_processed"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Repository defines sync status persistence.
type Repository interface {
	// Set merge-writes the status document for (user, provider, account)
	Set(ctx context.Context, s *SyncStatus) error

	// Get retrieves one status document
	Get(ctx context.Context, userID int64, provider, accountID string) (*SyncStatus, error)

	// List retrieves all status documents for a user
	List(ctx context.Context, userID int64) ([]*SyncStatus, error)
}
