package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	apperrors "github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/repository"
	"github.com/vendalink/ordersync/internal/testutil"
)

func seedRepoAccount(t *testing.T, repo account.Repository) *account.Account {
	t.Helper()

	acct := &account.Account{
		UserID:    1,
		Provider:  account.ProviderNuvemshop,
		AccountID: "12345",
		Status:    account.StatusActive,
		Credentials: account.Credentials{
			AccessToken:   "tok-1",
			RefreshToken:  "ref-1",
			TokenIssuedAt: time.Now().Truncate(time.Second),
			ExpiresIn:     3600,
		},
	}
	if err := repo.Upsert(context.Background(), acct); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return acct
}

func TestAccountRoundTrip(t *testing.T) {
	repo := repository.NewAccountRepository(testutil.NewTestStore(t))
	seedRepoAccount(t, repo)

	got, err := repo.Get(context.Background(), 1, account.ProviderNuvemshop, "12345")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Status != account.StatusActive {
		t.Errorf("Status = %s, want active", got.Status)
	}
	if got.Credentials.AccessToken != "tok-1" {
		t.Errorf("AccessToken = %s, want tok-1", got.Credentials.AccessToken)
	}
	if got.Credentials.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", got.Credentials.ExpiresIn)
	}
	if !got.NeverSynced() {
		t.Error("new account should report NeverSynced")
	}
}

func TestAccountGetNotFound(t *testing.T) {
	repo := repository.NewAccountRepository(testutil.NewTestStore(t))

	_, err := repo.Get(context.Background(), 1, account.ProviderBling, "nope")
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("Get() error = %v, want NOT_FOUND", err)
	}
}

func TestUpdateCredentialsPreservesOtherFields(t *testing.T) {
	repo := repository.NewAccountRepository(testutil.NewTestStore(t))
	seedRepoAccount(t, repo)
	ctx := context.Background()

	newCreds := account.Credentials{
		AccessToken:   "tok-2",
		RefreshToken:  "ref-2",
		TokenIssuedAt: time.Now(),
		ExpiresIn:     7200,
	}
	if err := repo.UpdateCredentials(ctx, 1, account.ProviderNuvemshop, "12345", newCreds); err != nil {
		t.Fatalf("UpdateCredentials() error = %v", err)
	}

	got, err := repo.Get(ctx, 1, account.ProviderNuvemshop, "12345")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Credentials.AccessToken != "tok-2" {
		t.Errorf("AccessToken = %s, want tok-2", got.Credentials.AccessToken)
	}
	// The patch write must not wipe identity fields.
	if got.Provider != account.ProviderNuvemshop || got.AccountID != "12345" {
		t.Errorf("identity fields lost: provider=%s account=%s", got.Provider, got.AccountID)
	}
	if got.Status != account.StatusActive {
		t.Errorf("Status = %s, want active (preserved)", got.Status)
	}
}

func TestUpdateStatusReauthClearsCredentials(t *testing.T) {
	repo := repository.NewAccountRepository(testutil.NewTestStore(t))
	seedRepoAccount(t, repo)
	ctx := context.Background()

	if err := repo.UpdateStatus(ctx, 1, account.ProviderNuvemshop, "12345", account.StatusReauthRequired, "invalid_grant"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, err := repo.Get(ctx, 1, account.ProviderNuvemshop, "12345")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != account.StatusReauthRequired {
		t.Errorf("Status = %s, want reauth_required", got.Status)
	}
	if got.Credentials.AccessToken != "" || got.Credentials.RefreshToken != "" {
		t.Errorf("credentials not cleared: %+v", got.Credentials)
	}
	if got.LastError != "invalid_grant" {
		t.Errorf("LastError = %q, want invalid_grant", got.LastError)
	}
	if got.LastErrorAt == nil {
		t.Error("LastErrorAt not set")
	}
}

func TestAdvanceWatermark(t *testing.T) {
	repo := repository.NewAccountRepository(testutil.NewTestStore(t))
	seedRepoAccount(t, repo)
	ctx := context.Background()

	mark := time.Now().Truncate(time.Second)
	if err := repo.AdvanceWatermark(ctx, 1, account.ProviderNuvemshop, "12345", mark); err != nil {
		t.Fatalf("AdvanceWatermark() error = %v", err)
	}

	got, err := repo.Get(ctx, 1, account.ProviderNuvemshop, "12345")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.LastSyncAt == nil {
		t.Fatal("LastSyncAt is nil after AdvanceWatermark")
	}
	if !got.LastSyncAt.Equal(mark) {
		t.Errorf("LastSyncAt = %v, want %v", got.LastSyncAt, mark)
	}
}

func TestListAndListAll(t *testing.T) {
	st := testutil.NewTestStore(t)
	repo := repository.NewAccountRepository(st)
	ctx := context.Background()

	accounts := []*account.Account{
		{UserID: 1, Provider: account.ProviderBling, AccountID: "b1", Status: account.StatusActive},
		{UserID: 1, Provider: account.ProviderShopee, AccountID: "s1", Status: account.StatusActive},
		{UserID: 2, Provider: account.ProviderBling, AccountID: "b2", Status: account.StatusActive},
	}
	for _, a := range accounts {
		if err := repo.Upsert(ctx, a); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	mine, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("List() returned %d accounts, want 2", len(mine))
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAll() returned %d accounts, want 3", len(all))
	}
}

func TestDeleteAccount(t *testing.T) {
	repo := repository.NewAccountRepository(testutil.NewTestStore(t))
	seedRepoAccount(t, repo)
	ctx := context.Background()

	if err := repo.Delete(ctx, 1, account.ProviderNuvemshop, "12345"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.Get(ctx, 1, account.ProviderNuvemshop, "12345")
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("Get() after delete error = %v, want NOT_FOUND", err)
	}

	err = repo.Delete(ctx, 1, account.ProviderNuvemshop, "12345")
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("second Delete() error = %v, want NOT_FOUND", err)
	}
}
