package account

import "context"

// Service defines the interface for account business logic
type Service interface {
	// Connect stores credentials obtained from an authorization-code
	// exchange and marks the account active
	Connect(ctx context.Context, userID int64, provider, accountID string, creds Credentials) (*Account, error)

	// Disconnect removes an account
	Disconnect(ctx context.Context, userID int64, provider, accountID string) error

	// Get retrieves a single account
	Get(ctx context.Context, userID int64, provider, accountID string) (*Account, error)

	// List retrieves all accounts for a user
	List(ctx context.Context, userID int64) ([]*Account, error)
}
