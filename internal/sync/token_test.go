package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	apperrors "github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/testutil"
)

const tokenMargin = 300 * time.Second

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func seedAccount(t *testing.T, repo *testutil.MockAccountRepository, creds account.Credentials) *account.Account {
	t.Helper()
	acct := &account.Account{
		UserID:      1,
		Provider:    account.ProviderBling,
		AccountID:   "store-1",
		Status:      account.StatusActive,
		Credentials: creds,
	}
	if err := repo.Upsert(context.Background(), acct); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acct
}

func TestTokenManager_FreshTokenNotRefreshed(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	acct := seedAccount(t, repo, account.Credentials{
		AccessToken:   "tok-fresh",
		RefreshToken:  "ref",
		TokenIssuedAt: time.Now(),
		ExpiresIn:     3600,
	})

	m := NewTokenManager(repo, tokenMargin, testLogger())
	refreshed := false
	m.RegisterRefresher(account.ProviderBling, func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		refreshed = true
		return creds, nil
	})

	tok, err := m.ValidToken(context.Background(), acct)
	if err != nil {
		t.Fatalf("ValidToken() error = %v", err)
	}
	if tok != "tok-fresh" {
		t.Errorf("token = %q, want %q", tok, "tok-fresh")
	}
	if refreshed {
		t.Error("refresher called for a token well inside its lifetime")
	}
}

func TestTokenManager_MarginBoundary(t *testing.T) {
	m := NewTokenManager(testutil.NewMockAccountRepository(), tokenMargin, testLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"remaining lifetime exactly at margin", 3600*time.Second - tokenMargin, false},
		{"remaining lifetime one second inside margin", 3600*time.Second - tokenMargin + time.Second, true},
		{"token fully expired", 4000 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := account.Credentials{
				AccessToken:   "tok",
				RefreshToken:  "ref",
				TokenIssuedAt: now.Add(-tt.age),
				ExpiresIn:     3600,
			}
			if got := m.expiringSoon(creds, now); got != tt.want {
				t.Errorf("expiringSoon(age %s) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestTokenManager_MissingLifetimeTreatedAsExpired(t *testing.T) {
	m := NewTokenManager(testutil.NewMockAccountRepository(), tokenMargin, testLogger())
	now := time.Now()

	if !m.expiringSoon(account.Credentials{AccessToken: "", ExpiresIn: 3600, TokenIssuedAt: now}, now) {
		t.Error("empty access token not treated as expired")
	}
	if !m.expiringSoon(account.Credentials{AccessToken: "tok", ExpiresIn: 0, TokenIssuedAt: now}, now) {
		t.Error("zero lifetime not treated as expired")
	}
}

func TestTokenManager_RefreshPersistsCredentials(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	acct := seedAccount(t, repo, account.Credentials{
		AccessToken:   "tok-old",
		RefreshToken:  "ref-old",
		TokenIssuedAt: time.Now().Add(-2 * time.Hour),
		ExpiresIn:     3600,
	})

	m := NewTokenManager(repo, tokenMargin, testLogger())
	m.RegisterRefresher(account.ProviderBling, func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		if creds.RefreshToken != "ref-old" {
			return account.Credentials{}, fmt.Errorf("unexpected refresh token %q", creds.RefreshToken)
		}
		return account.Credentials{
			AccessToken:   "tok-new",
			RefreshToken:  "ref-new",
			TokenIssuedAt: time.Now(),
			ExpiresIn:     3600,
		}, nil
	})

	if _, err := m.ValidToken(context.Background(), acct); err != nil {
		t.Fatalf("ValidToken() error = %v", err)
	}

	stored, err := repo.Get(context.Background(), 1, account.ProviderBling, "store-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Credentials.AccessToken != "tok-new" || stored.Credentials.RefreshToken != "ref-new" {
		t.Errorf("stored credentials not rotated: %+v", stored.Credentials)
	}
}

func TestTokenManager_RefreshFailureMarksReauthRequired(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	acct := seedAccount(t, repo, account.Credentials{
		AccessToken:   "tok-old",
		RefreshToken:  "ref-revoked",
		TokenIssuedAt: time.Now().Add(-2 * time.Hour),
		ExpiresIn:     3600,
	})

	m := NewTokenManager(repo, tokenMargin, testLogger())
	calls := 0
	m.RegisterRefresher(account.ProviderBling, func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		calls++
		return account.Credentials{}, errors.New("invalid_grant")
	})

	_, err := m.ValidToken(context.Background(), acct)
	if !apperrors.IsCode(err, apperrors.ErrCodeAuthExpired) {
		t.Fatalf("ValidToken() error = %v, want AUTH_EXPIRED", err)
	}

	stored, getErr := repo.Get(context.Background(), 1, account.ProviderBling, "store-1")
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if stored.Status != account.StatusReauthRequired {
		t.Errorf("status = %q, want %q", stored.Status, account.StatusReauthRequired)
	}
	if stored.Credentials.AccessToken != "" || stored.Credentials.RefreshToken != "" {
		t.Errorf("credentials not cleared: %+v", stored.Credentials)
	}

	// A second call must be rejected without hitting the provider again.
	_, err = m.ValidToken(context.Background(), stored)
	if !apperrors.IsCode(err, apperrors.ErrCodeAccountState) {
		t.Fatalf("second ValidToken() error = %v, want ACCOUNT_INACTIVE", err)
	}
	if calls != 1 {
		t.Errorf("refresher called %d times, want 1", calls)
	}
}

func TestTokenManager_ConcurrentCallersRefreshOnce(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	seedAccount(t, repo, account.Credentials{
		AccessToken:   "tok-old",
		RefreshToken:  "ref",
		TokenIssuedAt: time.Now().Add(-2 * time.Hour),
		ExpiresIn:     3600,
	})

	m := NewTokenManager(repo, tokenMargin, testLogger())
	var calls int32
	m.RegisterRefresher(account.ProviderBling, func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(5 * time.Millisecond)
		return account.Credentials{
			AccessToken:   "tok-new",
			RefreshToken:  "ref-new",
			TokenIssuedAt: time.Now(),
			ExpiresIn:     3600,
		}, nil
	})

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct, err := repo.Get(context.Background(), 1, account.ProviderBling, "store-1")
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			tok, err := m.ValidToken(context.Background(), acct)
			if err != nil {
				t.Errorf("ValidToken() error = %v", err)
				return
			}
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("refresher called %d times, want 1", calls)
	}
	for i, tok := range tokens {
		if tok != "tok-new" {
			t.Errorf("caller %d got token %q, want %q", i, tok, "tok-new")
		}
	}
}
