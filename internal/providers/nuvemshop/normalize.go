package nuvemshop

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
)

// orderPayload mirrors the subset of the Nuvemshop order resource the
// canonical record needs. Monetary values arrive as decimal strings.
type orderPayload struct {
	ID             json.Number `json:"id"`
	Status         string      `json:"status"`
	PaymentStatus  string      `json:"payment_status"`
	ShippingStatus string      `json:"shipping_status"`
	CreatedAt      string      `json:"created_at"`
	CompletedAt    *struct {
		Date string `json:"date"`
	} `json:"completed_at"`
	Total                decimal.Decimal `json:"total"`
	ShippingCostOwner    decimal.Decimal `json:"shipping_cost_owner"`
	ShippingCostCustomer decimal.Decimal `json:"shipping_cost_customer"`
	ShippingOption       string          `json:"shipping_option"`
	ShippingTracking     string          `json:"shipping_tracking_number"`
	Gateway              string          `json:"gateway"`
	Customer             struct {
		Name string `json:"name"`
	} `json:"customer"`
	Products []struct {
		SKU      string          `json:"sku"`
		Name     string          `json:"name"`
		Quantity int             `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
	} `json:"products"`
	PaymentDetails []struct {
		Method string          `json:"method"`
		Amount decimal.Decimal `json:"amount"`
		Fee    decimal.Decimal `json:"fee"`
	} `json:"payment_details"`
}

// normalize converts a Nuvemshop order payload to the canonical record.
// Returns nil when the payload carries no identifier.
func normalize(accountID string, p *orderPayload) *order.Order {
	id := p.ID.String()
	if id == "" {
		return nil
	}

	o := &order.Order{
		ID:               order.Key(account.ProviderNuvemshop, id),
		Provider:         account.ProviderNuvemshop,
		AccountID:        accountID,
		Status:           normalizeStatus(p),
		GrossAmount:      p.Total,
		ShippingCost:     p.ShippingCostOwner,
		BuyerName:        p.Customer.Name,
		LogisticsChannel: p.ShippingOption,
		TrackingCode:     p.ShippingTracking,
	}

	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		o.CreatedAt = t
	}
	if p.CompletedAt != nil {
		if t, err := time.Parse("2006-01-02 15:04:05", p.CompletedAt.Date); err == nil {
			o.ClosedAt = &t
		}
	}

	raw := &order.RawDetail{}
	fee := decimal.Zero
	for _, item := range p.Products {
		raw.Items = append(raw.Items, order.RawItem{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	for _, pay := range p.PaymentDetails {
		fee = fee.Add(pay.Fee)
		raw.Payments = append(raw.Payments, order.RawPayment{
			Method: pay.Method,
			Amount: pay.Amount,
			Fee:    pay.Fee,
		})
	}
	if len(raw.Items) > 0 || len(raw.Payments) > 0 {
		o.Raw = raw
	}
	o.PlatformFee = fee

	if len(p.Products) > 0 {
		o.ItemTitle = p.Products[0].Name
	}

	return o
}

// normalizeStatus maps the platform's three status dimensions onto the
// canonical set. Cancellation wins; then fulfilment; then payment.
func normalizeStatus(p *orderPayload) order.Status {
	if p.Status == "cancelled" {
		return order.StatusCancelled
	}
	if p.PaymentStatus == "refunded" || p.PaymentStatus == "partially_refunded" {
		return order.StatusRefunded
	}
	switch p.ShippingStatus {
	case "delivered":
		return order.StatusDelivered
	case "shipped", "fulfilled":
		return order.StatusShipped
	}
	switch p.PaymentStatus {
	case "paid", "authorized":
		return order.StatusPaid
	case "pending":
		return order.StatusPending
	}
	return order.StatusUnknown
}
