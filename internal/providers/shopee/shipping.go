package shopee

import "github.com/shopspring/decimal"

// Logistics channel types as reported in the order's package list.
const (
	logisticsSellerFleet = "seller_own_fleet"
	logisticsDropoff     = "dropoff"
	logisticsPickup      = "pickup"
)

// priceTierThreshold splits orders into the low and high price tiers the
// marketplace applies different shipping subsidy rules to.
var priceTierThreshold = decimal.NewFromInt(79)

// highTierFallback is the flat shipping charge applied to high-tier orders
// on logistics channels outside the known subsidy table.
var highTierFallback = decimal.NewFromInt(5)

// carrierManaged channels settle shipping against the marketplace carrier
// program and produce a rebate rather than a seller cost.
var carrierManaged = map[string]bool{
	logisticsDropoff: true,
	logisticsPickup:  true,
}

// adjustedShippingCost reproduces the marketplace's shipping settlement rule.
//
// Low price tier (unit price below 79): only seller-fleet deliveries cost the
// seller anything, and the cost is the actual shipping fee. High price tier:
// seller-fleet deliveries pay the margin between actual and subsidized list
// fee; carrier-managed channels rebate the difference between list fee and
// the buyer-paid fee, recorded as a negative cost; anything else falls back
// to a flat charge.
func adjustedShippingCost(channel string, unitPrice, actualFee, listFee, buyerPaidFee decimal.Decimal) decimal.Decimal {
	if unitPrice.LessThan(priceTierThreshold) {
		if channel == logisticsSellerFleet {
			return actualFee
		}
		return decimal.Zero
	}

	switch {
	case channel == logisticsSellerFleet:
		return actualFee.Sub(listFee)
	case carrierManaged[channel]:
		return listFee.Sub(buyerPaidFee).Neg()
	default:
		return highTierFallback
	}
}
