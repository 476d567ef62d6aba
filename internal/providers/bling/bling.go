package bling

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/metrics"
	engine "github.com/vendalink/ordersync/internal/sync"
	"github.com/vendalink/ordersync/internal/sync/throttle"
)

// Bling enforces a tight global rate limit (~3 req/s across the whole
// application), so every call, listing pages included, goes through one
// serialized queue shared by all accounts.
type Adapter struct {
	cfg    config.BlingConfig
	sync   config.SyncConfig
	tokens *engine.TokenManager
	queue  *throttle.SerialQueue
	client *http.Client
	logger *logger.Logger
}

// New creates a Bling adapter.
func New(cfg config.BlingConfig, syncCfg config.SyncConfig, tokens *engine.TokenManager, log *logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		sync:   syncCfg,
		tokens: tokens,
		queue:  throttle.NewSerialQueue(account.ProviderBling, syncCfg.SerialQueueDelay),
		client: &http.Client{Timeout: syncCfg.HTTPTimeout},
		logger: log,
	}
}

// Provider returns the channel identifier.
func (a *Adapter) Provider() string {
	return account.ProviderBling
}

// Refresher returns the OAuth refresh exchange. Bling authenticates the
// client with HTTP basic auth on the token endpoint.
func (a *Adapter) Refresher() engine.RefreshFunc {
	return func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		form := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {creds.RefreshToken},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
		if err != nil {
			return account.Credentials{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)

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

		return account.Credentials{
			AccessToken:   tok.AccessToken,
			RefreshToken:  tok.RefreshToken,
			TokenIssuedAt: time.Now(),
			ExpiresIn:     tok.ExpiresIn,
		}, nil
	}
}

// Discover paginates the sales order listing. Pages go through the serial
// queue like every other Bling call, which also spaces them out; no extra
// inter-page delay is needed on top of the queue's spacing.
func (a *Adapter) Discover(ctx context.Context, acct *account.Account, since *time.Time) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string

	for page := 1; ; page++ {
		q := url.Values{
			"pagina": {fmt.Sprint(page)},
			"limite": {fmt.Sprint(a.sync.PageSize)},
		}
		if since != nil {
			q.Set("dataAlteracaoInicial", since.Format("2006-01-02 15:04:05"))
		}

		var payload struct {
			Data []struct {
				ID json.Number `json:"id"`
			} `json:"data"`
		}
		if err := a.get(ctx, acct, "/pedidos/vendas?"+q.Encode(), &payload); err != nil {
			return nil, err
		}

		for _, e := range payload.Data {
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
		if len(payload.Data) < a.sync.PageSize {
			break
		}
	}

	return ids, nil
}

// orderPayload is the sales order detail shape.
type orderPayload struct {
	Data struct {
		ID       json.Number     `json:"id"`
		Numero   json.Number     `json:"numero"`
		Data     string          `json:"data"`
		Total    decimal.Decimal `json:"total"`
		Contato  struct {
			Nome string `json:"nome"`
		} `json:"contato"`
		Situacao struct {
			ID int `json:"id"`
		} `json:"situacao"`
		Itens []struct {
			Codigo     string          `json:"codigo"`
			Descricao  string          `json:"descricao"`
			Quantidade int             `json:"quantidade"`
			Valor      decimal.Decimal `json:"valor"`
			Categoria  struct {
				Descricao string `json:"descricao"`
			} `json:"categoria"`
		} `json:"itens"`
		Parcelas []struct {
			FormaPagamento struct {
				Descricao string `json:"descricao"`
			} `json:"formaPagamento"`
			Valor decimal.Decimal `json:"valor"`
		} `json:"parcelas"`
		Transporte struct {
			FreteTotal decimal.Decimal `json:"frete"`
			Volumes    []struct {
				CodigoRastreamento string `json:"codigoRastreamento"`
				Servico            string `json:"servico"`
			} `json:"volumes"`
		} `json:"transporte"`
		Taxas struct {
			TaxaComissao decimal.Decimal `json:"taxaComissao"`
			CustoFrete   decimal.Decimal `json:"custoFrete"`
		} `json:"taxas"`
	} `json:"data"`
}

// Bling situation ids, per the ERP's fixed situation table.
var situationStatus = map[int]order.Status{
	6:  order.StatusPending,   // em aberto
	9:  order.StatusShipped,   // atendido
	12: order.StatusCancelled, // cancelado
	15: order.StatusPaid,      // em andamento
	24: order.StatusDelivered, // entregue
	63: order.StatusRefunded,  // devolvido
}

// FetchDetails resolves each id through the serial queue, one request at a
// time. Per-id failures drop the id with a warning and keep the run alive.
func (a *Adapter) FetchDetails(ctx context.Context, acct *account.Account, ids []string, onProgress func(done, total int)) ([]*order.Order, error) {
	var orders []*order.Order
	total := len(ids)

	for i, id := range ids {
		var payload orderPayload
		if err := a.get(ctx, acct, "/pedidos/vendas/"+id, &payload); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID).
				Warnf("dropping order %s after fetch failure: %v", id, err)
			continue
		}

		if o := a.normalize(acct.AccountID, &payload); o != nil {
			orders = append(orders, o)
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return orders, nil
}

func (a *Adapter) normalize(accountID string, p *orderPayload) *order.Order {
	d := &p.Data
	id := d.ID.String()
	if id == "" {
		return nil
	}

	status, ok := situationStatus[d.Situacao.ID]
	if !ok {
		status = order.StatusUnknown
	}

	o := &order.Order{
		ID:           order.Key(account.ProviderBling, id),
		Provider:     account.ProviderBling,
		AccountID:    accountID,
		Status:       status,
		PlatformFee:  d.Taxas.TaxaComissao,
		ShippingCost: d.Taxas.CustoFrete,
		BuyerName:    d.Contato.Nome,
	}

	if t, err := time.Parse("2006-01-02", d.Data); err == nil {
		o.CreatedAt = t
	}

	raw := &order.RawDetail{}
	gross := decimal.Zero
	seenCat := make(map[string]bool)
	for _, item := range d.Itens {
		gross = gross.Add(item.Valor.Mul(decimal.NewFromInt(int64(item.Quantidade))))
		raw.Items = append(raw.Items, order.RawItem{
			SKU:       item.Codigo,
			Name:      item.Descricao,
			Quantity:  item.Quantidade,
			UnitPrice: item.Valor,
		})
		if c := item.Categoria.Descricao; c != "" && !seenCat[c] {
			seenCat[c] = true
			o.Categories = append(o.Categories, c)
		}
	}
	for _, parcela := range d.Parcelas {
		raw.Payments = append(raw.Payments, order.RawPayment{
			Method: parcela.FormaPagamento.Descricao,
			Amount: parcela.Valor,
		})
	}
	if len(d.Transporte.Volumes) > 0 {
		o.TrackingCode = d.Transporte.Volumes[0].CodigoRastreamento
		o.LogisticsChannel = d.Transporte.Volumes[0].Servico
	}
	if !d.Transporte.FreteTotal.IsZero() {
		raw.Shipping = &order.RawShipping{Cost: d.Transporte.FreteTotal}
	}
	if len(raw.Items) > 0 || len(raw.Payments) > 0 || raw.Shipping != nil {
		o.Raw = raw
	}

	if gross.IsZero() {
		gross = d.Total
	}
	o.GrossAmount = gross
	if len(d.Itens) > 0 {
		o.ItemTitle = d.Itens[0].Descricao
	}

	return o
}

// get performs one authenticated GET through the serial queue.
func (a *Adapter) get(ctx context.Context, acct *account.Account, path string, out interface{}) error {
	token, err := a.tokens.ValidToken(ctx, acct)
	if err != nil {
		return err
	}

	return a.queue.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			metrics.RecordProviderRequest(account.ProviderBling, "error")
			return errors.ProviderAPIError(account.ProviderBling, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			metrics.RecordProviderRequest(account.ProviderBling, "rate_limited")
			body, _ := io.ReadAll(resp.Body)
			return errors.RateLimited(string(body))
		case resp.StatusCode >= 400:
			metrics.RecordProviderRequest(account.ProviderBling, "error")
			body, _ := io.ReadAll(resp.Body)
			return errors.ProviderAPIError(account.ProviderBling,
				fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
		}

		metrics.RecordProviderRequest(account.ProviderBling, "success")
		return json.NewDecoder(resp.Body).Decode(out)
	})
}
