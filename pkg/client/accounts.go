package client

import (
	"context"
	"fmt"
)

// ListAccounts retrieves all connected accounts
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.doRequest(ctx, "GET", "/api/v1/accounts/", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ConnectAccount stores provider credentials and activates the account
func (c *Client) ConnectAccount(ctx context.Context, provider string, req ConnectAccountRequest) (*Account, error) {
	var acct Account
	path := fmt.Sprintf("/api/v1/accounts/%s/connect", provider)
	if err := c.doRequest(ctx, "POST", path, req, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// DisconnectAccount removes a connected account
func (c *Client) DisconnectAccount(ctx context.Context, provider, accountID string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s/%s", provider, accountID)
	return c.doRequest(ctx, "DELETE", path, nil, nil)
}
