package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/store"
)

const accountsCollection = "accounts"

// AccountRepository implements account.Repository over the document store
type AccountRepository struct {
	store store.Store
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(st store.Store) account.Repository {
	return &AccountRepository{store: st}
}

// accountDoc is the persisted shape. Credentials are stored here but never
// serialized on the API surface (the domain struct hides them).
type accountDoc struct {
	UserID      int64           `json:"user_id"`
	Provider    string          `json:"provider"`
	AccountID   string          `json:"account_id"`
	Status      string          `json:"status"`
	Credentials *credentialsDoc `json:"credentials,omitempty"`
	LastSyncAt  *int64          `json:"last_sync_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	LastErrorAt *int64          `json:"last_error_at,omitempty"`
	CreatedAt   int64           `json:"created_at,omitempty"`
	UpdatedAt   int64           `json:"updated_at,omitempty"`
}

type credentialsDoc struct {
	AccessToken   string `json:"access_token,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	TokenIssuedAt int64  `json:"token_issued_at,omitempty"`
	ExpiresIn     int64  `json:"expires_in,omitempty"`
}

func accountKey(provider, accountID string) string {
	return fmt.Sprintf("%s-%s", provider, accountID)
}

func toAccountDoc(a *account.Account) *accountDoc {
	doc := &accountDoc{
		UserID:    a.UserID,
		Provider:  a.Provider,
		AccountID: a.AccountID,
		Status:    string(a.Status),
		LastError: a.LastError,
		CreatedAt: a.CreatedAt.Unix(),
		UpdatedAt: a.UpdatedAt.Unix(),
		Credentials: &credentialsDoc{
			AccessToken:   a.Credentials.AccessToken,
			RefreshToken:  a.Credentials.RefreshToken,
			TokenIssuedAt: a.Credentials.TokenIssuedAt.Unix(),
			ExpiresIn:     a.Credentials.ExpiresIn,
		},
	}
	if a.LastSyncAt != nil {
		ts := a.LastSyncAt.Unix()
		doc.LastSyncAt = &ts
	}
	if a.LastErrorAt != nil {
		ts := a.LastErrorAt.Unix()
		doc.LastErrorAt = &ts
	}
	return doc
}

func fromAccountDoc(doc *accountDoc) *account.Account {
	a := &account.Account{
		UserID:    doc.UserID,
		Provider:  doc.Provider,
		AccountID: doc.AccountID,
		Status:    account.Status(doc.Status),
		LastError: doc.LastError,
		CreatedAt: time.Unix(doc.CreatedAt, 0),
		UpdatedAt: time.Unix(doc.UpdatedAt, 0),
	}
	if doc.Credentials != nil {
		a.Credentials = account.Credentials{
			AccessToken:   doc.Credentials.AccessToken,
			RefreshToken:  doc.Credentials.RefreshToken,
			TokenIssuedAt: time.Unix(doc.Credentials.TokenIssuedAt, 0),
			ExpiresIn:     doc.Credentials.ExpiresIn,
		}
	}
	if doc.LastSyncAt != nil {
		t := time.Unix(*doc.LastSyncAt, 0)
		a.LastSyncAt = &t
	}
	if doc.LastErrorAt != nil {
		t := time.Unix(*doc.LastErrorAt, 0)
		a.LastErrorAt = &t
	}
	return a
}

// Upsert creates or updates an account
func (r *AccountRepository) Upsert(ctx context.Context, a *account.Account) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	data, err := json.Marshal(toAccountDoc(a))
	if err != nil {
		return errors.DatabaseError("failed to encode account", err)
	}

	if err := r.store.Set(ctx, a.UserID, accountsCollection, accountKey(a.Provider, a.AccountID), data); err != nil {
		return errors.DatabaseError("failed to upsert account", err)
	}

	return nil
}

// Get retrieves an account
func (r *AccountRepository) Get(ctx context.Context, userID int64, provider, accountID string) (*account.Account, error) {
	data, err := r.store.Get(ctx, userID, accountsCollection, accountKey(provider, accountID))
	if err == store.ErrNotFound {
		return nil, errors.NotFound("Account")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get account", err)
	}

	var doc accountDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.DatabaseError("failed to decode account", err)
	}

	return fromAccountDoc(&doc), nil
}

// List retrieves all accounts for a user
func (r *AccountRepository) List(ctx context.Context, userID int64) ([]*account.Account, error) {
	docs, err := r.store.Query(ctx, userID, accountsCollection, store.Query{
		OrderBy: "provider",
	})
	if err != nil {
		return nil, errors.DatabaseError("failed to list accounts", err)
	}

	return decodeAccounts(docs)
}

// ListAll retrieves every stored account across users
func (r *AccountRepository) ListAll(ctx context.Context) ([]*account.Account, error) {
	docs, err := r.store.QueryAll(ctx, accountsCollection, store.Query{
		OrderBy: "user_id",
	})
	if err != nil {
		return nil, errors.DatabaseError("failed to list accounts", err)
	}

	return decodeAccounts(docs)
}

func decodeAccounts(docs []json.RawMessage) ([]*account.Account, error) {
	accounts := make([]*account.Account, 0, len(docs))
	for _, data := range docs {
		var doc accountDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.DatabaseError("failed to decode account", err)
		}
		accounts = append(accounts, fromAccountDoc(&doc))
	}
	return accounts, nil
}

// Delete removes an account
func (r *AccountRepository) Delete(ctx context.Context, userID int64, provider, accountID string) error {
	err := r.store.Delete(ctx, userID, accountsCollection, accountKey(provider, accountID))
	if err == store.ErrNotFound {
		return errors.NotFound("Account")
	}
	if err != nil {
		return errors.DatabaseError("failed to delete account", err)
	}
	return nil
}

// UpdateCredentials atomically replaces the stored OAuth state
func (r *AccountRepository) UpdateCredentials(ctx context.Context, userID int64, provider, accountID string, creds account.Credentials) error {
	patch := map[string]interface{}{
		"credentials": credentialsDoc{
			AccessToken:   creds.AccessToken,
			RefreshToken:  creds.RefreshToken,
			TokenIssuedAt: creds.TokenIssuedAt.Unix(),
			ExpiresIn:     creds.ExpiresIn,
		},
		"updated_at": time.Now().Unix(),
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return errors.DatabaseError("failed to encode credentials", err)
	}

	if err := r.store.Set(ctx, userID, accountsCollection, accountKey(provider, accountID), data); err != nil {
		return errors.DatabaseError("failed to update credentials", err)
	}

	return nil
}

// UpdateStatus transitions the account status. Demoting to reauth_required
// clears the stored credential fields.
func (r *AccountRepository) UpdateStatus(ctx context.Context, userID int64, provider, accountID string, status account.Status, lastError string) error {
	now := time.Now().Unix()
	patch := map[string]interface{}{
		"status":     string(status),
		"updated_at": now,
	}
	if lastError != "" {
		patch["last_error"] = lastError
		patch["last_error_at"] = now
	}
	if status == account.StatusReauthRequired {
		patch["credentials"] = credentialsDoc{}
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return errors.DatabaseError("failed to encode status", err)
	}

	if err := r.store.Set(ctx, userID, accountsCollection, accountKey(provider, accountID), data); err != nil {
		return errors.DatabaseError("failed to update account status", err)
	}

	return nil
}

// AdvanceWatermark moves the last-sync watermark forward
func (r *AccountRepository) AdvanceWatermark(ctx context.Context, userID int64, provider, accountID string, syncedAt time.Time) error {
	patch := map[string]interface{}{
		"last_sync_at": syncedAt.Unix(),
		"updated_at":   time.Now().Unix(),
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return errors.DatabaseError("failed to encode watermark", err)
	}

	if err := r.store.Set(ctx, userID, accountsCollection, accountKey(provider, accountID), data); err != nil {
		return errors.DatabaseError("failed to advance watermark", err)
	}

	return nil
}
