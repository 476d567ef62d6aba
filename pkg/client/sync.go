package client

import (
	"context"
	"fmt"
)

// TriggerSync starts a background sync for one account
func (c *Client) TriggerSync(ctx context.Context, provider, accountID string) (*SyncJob, error) {
	var job SyncJob
	path := fmt.Sprintf("/api/v1/sync/%s/%s", provider, accountID)
	if err := c.doRequest(ctx, "POST", path, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// TriggerSyncAll starts a background sync for every connected account
func (c *Client) TriggerSyncAll(ctx context.Context) error {
	return c.doRequest(ctx, "POST", "/api/v1/sync/", nil, nil)
}

// SyncStatuses retrieves the progress of all sync jobs
func (c *Client) SyncStatuses(ctx context.Context) ([]SyncStatus, error) {
	var statuses []SyncStatus
	if err := c.doRequest(ctx, "GET", "/api/v1/sync/status", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// CheckUpdates reports which accounts have pending remote changes
func (c *Client) CheckUpdates(ctx context.Context) ([]UpdateCheck, error) {
	var checks []UpdateCheck
	if err := c.doRequest(ctx, "GET", "/api/v1/sync/updates", nil, &checks); err != nil {
		return nil, err
	}
	return checks, nil
}
