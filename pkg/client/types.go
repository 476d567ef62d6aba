package client

import "time"

// User represents a registered user
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse bundles a user with a token pair
type AuthResponse struct {
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Account represents a connected provider account
type Account struct {
	ID          int64      `json:"id"`
	Provider    string     `json:"provider"`
	AccountID   string     `json:"account_id"`
	Status      string     `json:"status"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ConnectAccountRequest carries credentials from an authorization-code exchange
type ConnectAccountRequest struct {
	AccountID    string `json:"account_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// SyncJob acknowledges an accepted sync trigger
type SyncJob struct {
	JobID     string `json:"job_id"`
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
}

// SyncStatus is the progress record of one account's sync
type SyncStatus struct {
	Provider         string    `json:"provider"`
	AccountID        string    `json:"account_id"`
	Message          string    `json:"message"`
	Progress         int       `json:"progress"`
	IsError          bool      `json:"is_error"`
	RecordsProcessed int       `json:"records_processed"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UpdateCheck reports whether an account has pending remote changes
type UpdateCheck struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Pending   bool   `json:"pending"`
	Error     string `json:"error,omitempty"`
}

// Order is a normalized sale record
type Order struct {
	ID               string     `json:"id"`
	Provider         string     `json:"provider"`
	AccountID        string     `json:"account_id"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	GrossAmount      string     `json:"gross_amount"`
	PlatformFee      string     `json:"platform_fee"`
	ShippingCost     string     `json:"shipping_cost"`
	BuyerName        string     `json:"buyer_name,omitempty"`
	ItemTitle        string     `json:"item_title,omitempty"`
	LogisticsChannel string     `json:"logistics_channel,omitempty"`
	TrackingCode     string     `json:"tracking_code,omitempty"`
	Categories       []string   `json:"categories,omitempty"`
}

// OrderPage is a paginated order listing
type OrderPage struct {
	Data       []Order `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalItems int64   `json:"total_items"`
	TotalPages int     `json:"total_pages"`
}
