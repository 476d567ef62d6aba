package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the canonical sale record persisted per account. Provider payloads
// are normalized into this shape before they reach the store; fields absent
// upstream stay at their zero value and are stripped from the stored document.
type Order struct {
	ID               string          `json:"id"`
	Provider         string          `json:"provider"`
	AccountID        string          `json:"account_id"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	BuyerName        string          `json:"buyer_name,omitempty"`
	ItemTitle        string          `json:"item_title,omitempty"`
	LogisticsChannel string          `json:"logistics_channel,omitempty"`
	TrackingCode     string          `json:"tracking_code,omitempty"`
	Categories       []string        `json:"categories,omitempty"`
	Raw              *RawDetail      `json:"raw,omitempty"`
}

// RawDetail preserves the provider substructure for downstream reporting.
type RawDetail struct {
	Items    []RawItem    `json:"items,omitempty"`
	Payments []RawPayment `json:"payments,omitempty"`
	Shipping *RawShipping `json:"shipping,omitempty"`
}

// RawItem is a line item as the provider reported it.
type RawItem struct {
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Fee       decimal.Decimal `json:"fee"`
}

// RawPayment is a payment or settlement entry.
type RawPayment struct {
	Method string          `json:"method,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
}

// RawShipping captures logistics metadata.
type RawShipping struct {
	Carrier      string          `json:"carrier,omitempty"`
	Service      string          `json:"service,omitempty"`
	Cost         decimal.Decimal `json:"cost"`
	EstimatedFee decimal.Decimal `json:"estimated_fee"`
}

// Status is the normalized order status set.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
	// StatusUnknown is the documented fallback for statuses the
	// normalization table does not recognize.
	StatusUnknown Status = "unknown"
)

// Key builds the globally unique document id for a provider order.
func Key(provider, providerOrderID string) string {
	return fmt.Sprintf("%s-%s", provider, providerOrderID)
}

// Filter narrows order listings.
type Filter struct {
	Provider string
	Status   string
}
