package shopee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
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

const (
	pathOrderList      = "/api/v2/order/get_order_list"
	pathOrderDetail    = "/api/v2/order/get_order_detail"
	pathEscrowDetail   = "/api/v2/payment/get_escrow_detail"
	pathTrackingNumber = "/api/v2/logistics/get_tracking_number"
	pathRefreshToken   = "/api/v2/auth/access_token/get"
)

// Adapter integrates the Shopee open platform. Every request carries an
// HMAC signature; the listing endpoint only accepts bounded time ranges, so
// discovery walks fixed-length calendar windows. Each order needs two
// secondary lookups (escrow and tracking) on top of the detail call.
type Adapter struct {
	cfg    config.ShopeeConfig
	sync   config.SyncConfig
	tokens *engine.TokenManager
	chunks *throttle.ChunkDispatcher
	signer *Signer
	client *http.Client
	logger *logger.Logger
}

// New creates a Shopee adapter.
func New(cfg config.ShopeeConfig, syncCfg config.SyncConfig, tokens *engine.TokenManager, log *logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		sync:   syncCfg,
		tokens: tokens,
		chunks: throttle.NewChunkDispatcher(syncCfg.ChunkSize, syncCfg.ChunkConcurrency, syncCfg.ChunkGroupDelay, log),
		signer: NewSigner(cfg.PartnerID, cfg.PartnerKey),
		client: &http.Client{Timeout: syncCfg.HTTPTimeout},
		logger: log,
	}
}

// Provider returns the channel identifier.
func (a *Adapter) Provider() string {
	return account.ProviderShopee
}

// Refresher returns the token exchange. The refresh endpoint is signed at
// partner level (no access token or shop id in the base string) but the shop
// id travels in the JSON body.
func (a *Adapter) Refresher() engine.RefreshFunc {
	return func(ctx context.Context, acct *account.Account, creds account.Credentials) (account.Credentials, error) {
		shopID, err := strconv.ParseInt(acct.AccountID, 10, 64)
		if err != nil {
			return account.Credentials{}, fmt.Errorf("invalid shop id %q: %w", acct.AccountID, err)
		}

		ts := time.Now().Unix()
		q := url.Values{
			"partner_id": {strconv.FormatInt(a.signer.PartnerID(), 10)},
			"timestamp":  {strconv.FormatInt(ts, 10)},
			"sign":       {a.signer.Sign(pathRefreshToken, ts, "", "")},
		}

		body, err := json.Marshal(map[string]interface{}{
			"refresh_token": creds.RefreshToken,
			"partner_id":    a.signer.PartnerID(),
			"shop_id":       shopID,
		})
		if err != nil {
			return account.Credentials{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			a.cfg.BaseURL+pathRefreshToken+"?"+q.Encode(), bytes.NewReader(body))
		if err != nil {
			return account.Credentials{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return account.Credentials{}, err
		}
		defer resp.Body.Close()

		var tok struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpireIn     int64  `json:"expire_in"`
			Error        string `json:"error"`
			Message      string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
			return account.Credentials{}, err
		}
		if tok.Error != "" || tok.AccessToken == "" {
			return account.Credentials{}, fmt.Errorf("token refresh rejected: %s %s", tok.Error, tok.Message)
		}

		return account.Credentials{
			AccessToken:   tok.AccessToken,
			RefreshToken:  tok.RefreshToken,
			TokenIssuedAt: time.Now(),
			ExpiresIn:     tok.ExpireIn,
		}, nil
	}
}

// Discover walks the update-time range in fixed-length calendar windows,
// paginating each window by cursor. First sync covers the full lookback
// horizon; incremental runs cover [since, now].
func (a *Adapter) Discover(ctx context.Context, acct *account.Account, since *time.Time) ([]string, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -a.sync.ShopeeLookbackDays)
	if since != nil {
		from = *since
	}

	window := time.Duration(a.sync.ShopeeWindowDays) * 24 * time.Hour
	seen := make(map[string]bool)
	var ids []string

	for sliceStart := from; sliceStart.Before(now); sliceStart = sliceStart.Add(window) {
		sliceEnd := sliceStart.Add(window)
		if sliceEnd.After(now) {
			sliceEnd = now
		}

		cursor := ""
		for {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			q := url.Values{
				"time_range_field": {"update_time"},
				"time_from":        {strconv.FormatInt(sliceStart.Unix(), 10)},
				"time_to":          {strconv.FormatInt(sliceEnd.Unix(), 10)},
				"page_size":        {strconv.Itoa(a.sync.PageSize)},
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}

			var payload struct {
				Response struct {
					OrderList []struct {
						OrderSN string `json:"order_sn"`
					} `json:"order_list"`
					More       bool   `json:"more"`
					NextCursor string `json:"next_cursor"`
				} `json:"response"`
			}
			if err := a.get(ctx, acct, pathOrderList, q, &payload); err != nil {
				return nil, err
			}

			for _, e := range payload.Response.OrderList {
				if e.OrderSN == "" || seen[e.OrderSN] {
					continue
				}
				seen[e.OrderSN] = true
				ids = append(ids, e.OrderSN)
			}

			if len(ids) >= a.sync.DiscoveryCap {
				a.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID).
					Warnf("discovery hit the %d id cap, truncating", a.sync.DiscoveryCap)
				return ids[:a.sync.DiscoveryCap], nil
			}
			if !payload.Response.More {
				break
			}
			cursor = payload.Response.NextCursor

			time.Sleep(a.sync.PageDelay)
		}
	}

	return ids, nil
}

// FetchDetails resolves order serials through the chunk dispatcher. Each
// serial costs three calls: detail, escrow settlement, tracking number.
func (a *Adapter) FetchDetails(ctx context.Context, acct *account.Account, ids []string, onProgress func(done, total int)) ([]*order.Order, error) {
	var mu sync.Mutex
	var orders []*order.Order

	err := a.chunks.Run(ctx, ids, func(ctx context.Context, sn string) error {
		detail, err := a.fetchDetail(ctx, acct, sn)
		if err != nil {
			return err
		}

		income, err := a.fetchEscrow(ctx, acct, sn)
		if err != nil {
			return err
		}

		tracking, err := a.fetchTracking(ctx, acct, sn)
		if err != nil {
			// Tracking is best-effort; unshipped orders have none yet.
			a.logger.WithAccount(acct.UserID, acct.Provider, acct.AccountID).
				Debugf("no tracking number for %s: %v", sn, err)
		}

		o := normalize(acct.AccountID, detail, income, tracking)
		if o == nil {
			return fmt.Errorf("order %s has no identifier", sn)
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

func (a *Adapter) fetchDetail(ctx context.Context, acct *account.Account, sn string) (*orderDetail, error) {
	q := url.Values{
		"order_sn_list": {sn},
		"response_optional_fields": {
			"buyer_username,item_list,package_list,total_amount,pay_time",
		},
	}

	var payload struct {
		Response struct {
			OrderList []orderDetail `json:"order_list"`
		} `json:"response"`
	}
	if err := a.get(ctx, acct, pathOrderDetail, q, &payload); err != nil {
		return nil, err
	}
	if len(payload.Response.OrderList) == 0 {
		return nil, fmt.Errorf("order %s not found in detail response", sn)
	}
	return &payload.Response.OrderList[0], nil
}

func (a *Adapter) fetchEscrow(ctx context.Context, acct *account.Account, sn string) (*orderIncome, error) {
	q := url.Values{"order_sn": {sn}}

	var payload struct {
		Response struct {
			OrderIncome orderIncome `json:"order_income"`
		} `json:"response"`
	}
	if err := a.get(ctx, acct, pathEscrowDetail, q, &payload); err != nil {
		return nil, err
	}
	return &payload.Response.OrderIncome, nil
}

func (a *Adapter) fetchTracking(ctx context.Context, acct *account.Account, sn string) (string, error) {
	q := url.Values{"order_sn": {sn}}

	var payload struct {
		Response struct {
			TrackingNumber string `json:"tracking_number"`
		} `json:"response"`
	}
	if err := a.get(ctx, acct, pathTrackingNumber, q, &payload); err != nil {
		return "", err
	}
	return payload.Response.TrackingNumber, nil
}

// get performs one signed GET. Common auth parameters are appended to the
// caller's query before signing.
func (a *Adapter) get(ctx context.Context, acct *account.Account, path string, q url.Values, out interface{}) error {
	token, err := a.tokens.ValidToken(ctx, acct)
	if err != nil {
		return err
	}

	ts := time.Now().Unix()
	q.Set("partner_id", strconv.FormatInt(a.signer.PartnerID(), 10))
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("access_token", token)
	q.Set("shop_id", acct.AccountID)
	q.Set("sign", a.signer.Sign(path, ts, token, acct.AccountID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(account.ProviderShopee, "error")
		return errors.ProviderAPIError(account.ProviderShopee, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordProviderRequest(account.ProviderShopee, "rate_limited")
		body, _ := io.ReadAll(resp.Body)
		return errors.RateLimited(string(body))
	case resp.StatusCode >= 400:
		metrics.RecordProviderRequest(account.ProviderShopee, "error")
		body, _ := io.ReadAll(resp.Body)
		return errors.ProviderAPIError(account.ProviderShopee,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	metrics.RecordProviderRequest(account.ProviderShopee, "success")
	return json.NewDecoder(resp.Body).Decode(out)
}

// orderDetail is the subset of the order detail resource used here.
type orderDetail struct {
	OrderSN       string          `json:"order_sn"`
	OrderStatus   string          `json:"order_status"`
	CreateTime    int64           `json:"create_time"`
	PayTime       int64           `json:"pay_time"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BuyerUsername string          `json:"buyer_username"`
	ItemList      []struct {
		ItemSKU              string          `json:"item_sku"`
		ItemName             string          `json:"item_name"`
		QuantityPurchased    int             `json:"model_quantity_purchased"`
		ModelDiscountedPrice decimal.Decimal `json:"model_discounted_price"`
	} `json:"item_list"`
	PackageList []struct {
		ShippingCarrier string `json:"shipping_carrier"`
		DeliveryMethod  string `json:"delivery_method"`
	} `json:"package_list"`
}

// orderIncome is the escrow settlement breakdown.
type orderIncome struct {
	EscrowAmount         decimal.Decimal `json:"escrow_amount"`
	CommissionFee        decimal.Decimal `json:"commission_fee"`
	ServiceFee           decimal.Decimal `json:"service_fee"`
	SellerTransactionFee decimal.Decimal `json:"seller_transaction_fee"`
	ActualShippingFee    decimal.Decimal `json:"actual_shipping_fee"`
	EstimatedShippingFee decimal.Decimal `json:"estimated_shipping_fee"`
	BuyerPaidShippingFee decimal.Decimal `json:"buyer_paid_shipping_fee"`
}

var statusMap = map[string]order.Status{
	"UNPAID":             order.StatusPending,
	"READY_TO_SHIP":      order.StatusPaid,
	"PROCESSED":          order.StatusPaid,
	"SHIPPED":            order.StatusShipped,
	"TO_CONFIRM_RECEIVE": order.StatusShipped,
	"COMPLETED":          order.StatusDelivered,
	"CANCELLED":          order.StatusCancelled,
	"IN_CANCEL":          order.StatusCancelled,
	"TO_RETURN":          order.StatusRefunded,
}

// normalize folds the three fetched resources into the canonical record.
func normalize(accountID string, d *orderDetail, income *orderIncome, tracking string) *order.Order {
	if d.OrderSN == "" {
		return nil
	}

	status, ok := statusMap[d.OrderStatus]
	if !ok {
		status = order.StatusUnknown
	}

	channel := ""
	carrier := ""
	if len(d.PackageList) > 0 {
		channel = d.PackageList[0].DeliveryMethod
		carrier = d.PackageList[0].ShippingCarrier
	}

	// The shipping rule is keyed on the highest unit price in the order.
	unitPrice := decimal.Zero
	for _, item := range d.ItemList {
		if item.ModelDiscountedPrice.GreaterThan(unitPrice) {
			unitPrice = item.ModelDiscountedPrice
		}
	}

	o := &order.Order{
		ID:          order.Key(account.ProviderShopee, d.OrderSN),
		Provider:    account.ProviderShopee,
		AccountID:   accountID,
		Status:      status,
		GrossAmount: d.TotalAmount,
		PlatformFee: income.CommissionFee.Add(income.ServiceFee).Add(income.SellerTransactionFee),
		ShippingCost: adjustedShippingCost(channel, unitPrice,
			income.ActualShippingFee, income.EstimatedShippingFee, income.BuyerPaidShippingFee),
		BuyerName:        d.BuyerUsername,
		LogisticsChannel: channel,
		TrackingCode:     tracking,
	}

	if d.CreateTime > 0 {
		o.CreatedAt = time.Unix(d.CreateTime, 0)
	}
	if status == order.StatusDelivered && d.PayTime > 0 {
		t := time.Unix(d.PayTime, 0)
		o.ClosedAt = &t
	}

	raw := &order.RawDetail{}
	for _, item := range d.ItemList {
		raw.Items = append(raw.Items, order.RawItem{
			SKU:       item.ItemSKU,
			Name:      item.ItemName,
			Quantity:  item.QuantityPurchased,
			UnitPrice: item.ModelDiscountedPrice,
		})
	}
	raw.Payments = append(raw.Payments, order.RawPayment{
		Method: "escrow",
		Amount: income.EscrowAmount,
		Fee:    o.PlatformFee,
	})
	raw.Shipping = &order.RawShipping{
		Carrier:      carrier,
		Service:      channel,
		Cost:         income.ActualShippingFee,
		EstimatedFee: income.EstimatedShippingFee,
	}
	o.Raw = raw

	if len(d.ItemList) > 0 {
		o.ItemTitle = d.ItemList[0].ItemName
	}

	return o
}
