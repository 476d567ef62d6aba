package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vendalink/ordersync/internal/domain/syncstatus"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/store"
)

const syncStatusCollection = "sync_status"

// SyncStatusRepository implements syncstatus.Repository over the document store
type SyncStatusRepository struct {
	store store.Store
}

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(st store.Store) syncstatus.Repository {
	return &SyncStatusRepository{store: st}
}

func statusKey(provider, accountID string) string {
	return fmt.Sprintf("%s-%s", provider, accountID)
}

// Set merge-writes the status document, overwriting it in place
func (r *SyncStatusRepository) Set(ctx context.Context, s *syncstatus.SyncStatus) error {
	s.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		return errors.DatabaseError("failed to encode sync status", err)
	}

	if err := r.store.Set(ctx, s.UserID, syncStatusCollection, statusKey(s.Provider, s.AccountID), data); err != nil {
		return errors.DatabaseError("failed to write sync status", err)
	}

	return nil
}

// Get retrieves one status document
func (r *SyncStatusRepository) Get(ctx context.Context, userID int64, provider, accountID string) (*syncstatus.SyncStatus, error) {
	data, err := r.store.Get(ctx, userID, syncStatusCollection, statusKey(provider, accountID))
	if err == store.ErrNotFound {
		return nil, errors.NotFound("Sync status")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get sync status", err)
	}

	var s syncstatus.SyncStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.DatabaseError("failed to decode sync status", err)
	}

	return &s, nil
}

// List retrieves all status documents for a user
func (r *SyncStatusRepository) List(ctx context.Context, userID int64) ([]*syncstatus.SyncStatus, error) {
	docs, err := r.store.Query(ctx, userID, syncStatusCollection, store.Query{
		OrderBy: "provider",
	})
	if err != nil {
		return nil, errors.DatabaseError("failed to list sync statuses", err)
	}

	statuses := make([]*syncstatus.SyncStatus, 0, len(docs))
	for _, data := range docs {
		var s syncstatus.SyncStatus
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.DatabaseError("failed to decode sync status", err)
		}
		statuses = append(statuses, &s)
	}

	return statuses, nil
}
