package account

import "time"

// Account represents a connected marketplace or ERP identity owned by a user.
type Account struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Provider    string      `json:"provider"`
	AccountID   string      `json:"account_id"`
	Status      Status      `json:"status"`
	Credentials Credentials `json:"-"`
	LastSyncAt  *time.Time  `json:"last_sync_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	LastErrorAt *time.Time  `json:"last_error_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Credentials contains the OAuth state for an account.
type Credentials struct {
	AccessToken   string    `json:"access_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	TokenIssuedAt time.Time `json:"token_issued_at,omitempty"`
	ExpiresIn     int64     `json:"expires_in,omitempty"`
}

// Status describes whether an account can still be used for API calls.
type Status string

const (
	// StatusActive means the stored credentials are usable or refreshable.
	StatusActive Status = "active"
	// StatusReauthRequired means refresh failed and the user must reconnect.
	// No outbound provider call is made for an account in this state.
	StatusReauthRequired Status = "reauth_required"
)

// Provider identifiers
const (
	ProviderNuvemshop = "nuvemshop"
	ProviderBling     = "bling"
	ProviderShopee    = "shopee"
)

// KnownProvider reports whether p names a supported channel.
func KnownProvider(p string) bool {
	switch p {
	case ProviderNuvemshop, ProviderBling, ProviderShopee:
		return true
	}
	return false
}

// NeverSynced reports whether the account has no completed sync yet,
// which forces full-history discovery.
func (a *Account) NeverSynced() bool {
	return a.LastSyncAt == nil
}
