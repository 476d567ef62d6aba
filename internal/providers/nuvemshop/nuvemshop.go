package nuvemshop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/metrics"
	engine "github.com/vendalink/ordersync/internal/sync"
	"github.com/vendalink/ordersync/internal/sync/throttle"
)

const tokenURL = "https://www.tiendanube.com/apps/authorize/token"

// Adapter integrates the Nuvemshop commerce platform. Detail fetches go
// through a bounded-concurrency chunk dispatcher; the account id is the
// numeric store id and is part of every API path.
type Adapter struct {
	cfg    config.NuvemshopConfig
	sync   config.SyncConfig
	tokens *engine.TokenManager
	chunks *throttle.ChunkDispatcher
	client *http.Client
	logger *logger.Logger
}

// New creates a Nuvemshop adapter.
func New(cfg config.NuvemshopConfig, syncCfg config.SyncConfig, tokens *engine.TokenManager, log *logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		sync:   syncCfg,
		tokens: tokens,
		chunks: throttle.NewChunkDispatcher(syncCfg.ChunkSize, syncCfg.ChunkConcurrency, syncCfg.ChunkGroupDelay, log),
		client: &http.Client{Timeout: syncCfg.HTTPTimeout},
		logger: log,
	}
}

// Provider returns the channel identifier.
func (a *Adapter) Provider() string {
	return account.ProviderNuvemshop
}

// Refresher returns the OAuth refresh exchange for Nuvemshop.
func (a *Adapter) Refresher() engine.RefreshFunc {
	return func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		form := url.Values{
			"client_id":     {a.cfg.ClientID},
			"client_secret": {a.cfg.ClientSecret},
			"grant_type":    {"refresh_token"},
			"refresh_token": {creds.RefreshToken},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return account.Credentials{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := a.client.Do(req)
		if err != nil {
			return account.Credentials{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return account.Credentials{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
		}

		var tok struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int64  `json:"expires_in"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
			return account.Credentials{}, err
		}
		if tok.RefreshToken == "" {
			tok.RefreshToken = creds.RefreshToken
		}

		return account.Credentials{
			AccessToken:   tok.AccessToken,
			RefreshToken:  tok.RefreshToken,
			TokenIssuedAt: time.Now(),
			ExpiresIn:     tok.ExpiresIn,
		}, nil
	}
}

// listEntry is the minimal listing payload used during discovery.
type listEntry struct {
	ID json.Number `json:"id"`
}

// Discover paginates the store's order listing, newest first, collecting
// identifiers until an empty or short page, or the safety cap.
func (a *Adapter) Discover(ctx context.Context, acct *account.Account, since *time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		q := url.Values{
			"page":     {fmt.Sprint(page)},
			"per_page": {fmt.Sprint(a.sync.PageSize)},
			"fields":   {"id"},
		}
		if since != nil {
			q.Set("updated_at_min", since.UTC().Format(time.RFC3339))
		}

		var entries []listEntry
		if err := a.get(ctx, acct, fmt.Sprintf("/%s/orders?%s", acct.AccountID, q.Encode()), &entries); err != nil {
			return nil, err
		}

		for _, e := range entries {
			id := e.ID.String()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}

		if len(ids) >= a.sync.DiscoveryCap {
			a.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID).
				Warnf("discovery hit the %d id cap, truncating", a.sync.DiscoveryCap)
			ids = ids[:a.sync.DiscoveryCap]
			break
		}
		if len(entries) < a.sync.PageSize {
			break
		}

		time.Sleep(a.sync.PageDelay)
	}

	return ids, nil
}

// FetchDetails resolves ids into canonical orders through the chunk
// dispatcher. Failed ids are dropped by the dispatcher with a warning.
func (a *Adapter) FetchDetails(ctx context.Context, acct *account.Account, ids []string, onProgress func(done, total int)) ([]*order.Order, error) {
	var mu sync.Mutex
	var orders []*order.Order

	err := a.chunks.Run(ctx, ids, func(ctx context.Context, id string) error {
		var payload orderPayload
		if err := a.get(ctx, acct, fmt.Sprintf("/%s/orders/%s", acct.AccountID, id), &payload); err != nil {
			return err
		}

		o := normalize(acct.AccountID, &payload)
		if o == nil {
			return fmt.Errorf("order %s has no identifier", id)
		}

		mu.Lock()
		orders = append(orders, o)
		mu.Unlock()
		return nil
	}, onProgress)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// get performs an authenticated GET against the store API.
func (a *Adapter) get(ctx context.Context, acct *account.Account, path string, out interface{}) error {
	token, err := a.tokens.ValidToken(ctx, acct)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	// Nuvemshop uses a non-standard Authentication header.
	req.Header.Set("Authentication", "bearer "+token)
	req.Header.Set("User-Agent", "ordersync (contato@vendalink.com.br)")

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(account.ProviderNuvemshop, "error")
		return errors.ProviderAPIError(account.ProviderNuvemshop, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordProviderRequest(account.ProviderNuvemshop, "rate_limited")
		body, _ := io.ReadAll(resp.Body)
		return errors.RateLimited(string(body))
	case resp.StatusCode >= 400:
		metrics.RecordProviderRequest(account.ProviderNuvemshop, "error")
		body, _ := io.ReadAll(resp.Body)
		return errors.ProviderAPIError(account.ProviderNuvemshop,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	metrics.RecordProviderRequest(account.ProviderNuvemshop, "success")
	return json.NewDecoder(resp.Body).Decode(out)
}
