package dto

import (
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/user"
)

// UserResponse is the public view of a user
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse builds a UserResponse from a domain user
func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse bundles a user with a fresh token pair
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// AccountResponse is the public view of a connected account.
// Credentials are never exposed.
type AccountResponse struct {
	ID          int64      `json:"id"`
	Provider    string     `json:"provider"`
	AccountID   string     `json:"account_id"`
	Status      string     `json:"status"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewAccountResponse builds an AccountResponse from a domain account
func NewAccountResponse(a *account.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Provider:    a.Provider,
		AccountID:   a.AccountID,
		Status:      string(a.Status),
		LastSyncAt:  a.LastSyncAt,
		LastError:   a.LastError,
		LastErrorAt: a.LastErrorAt,
		CreatedAt:   a.CreatedAt,
	}
}

// NewAccountResponseList maps a slice of domain accounts
func NewAccountResponseList(accounts []*account.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, NewAccountResponse(a))
	}
	return out
}

// SyncTriggeredResponse acknowledges an accepted sync job
type SyncTriggeredResponse struct {
	JobID     string `json:"job_id"`
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
}
