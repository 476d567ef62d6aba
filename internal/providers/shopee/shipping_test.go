package shopee

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAdjustedShippingCost(t *testing.T) {
	tests := []struct {
		name         string
		channel      string
		unitPrice    string
		actualFee    string
		listFee      string
		buyerPaidFee string
		want         string
	}{
		{
			name:      "low tier seller fleet pays actual fee",
			channel:   logisticsSellerFleet,
			unitPrice: "50", actualFee: "12.0", listFee: "0", buyerPaidFee: "0",
			want: "12.0",
		},
		{
			name:      "low tier carrier channel costs nothing",
			channel:   logisticsDropoff,
			unitPrice: "50", actualFee: "12.0", listFee: "10.0", buyerPaidFee: "3.0",
			want: "0",
		},
		{
			name:      "high tier seller fleet pays margin over list",
			channel:   logisticsSellerFleet,
			unitPrice: "120", actualFee: "20.0", listFee: "15.0", buyerPaidFee: "0",
			want: "5.0",
		},
		{
			name:      "high tier dropoff rebates list minus buyer paid",
			channel:   logisticsDropoff,
			unitPrice: "120", actualFee: "0", listFee: "18.0", buyerPaidFee: "4.0",
			want: "-14.0",
		},
		{
			name:      "high tier pickup rebates list minus buyer paid",
			channel:   logisticsPickup,
			unitPrice: "90", actualFee: "0", listFee: "10.0", buyerPaidFee: "2.5",
			want: "-7.5",
		},
		{
			name:      "high tier unknown channel falls back to flat charge",
			channel:   "freight",
			unitPrice: "200", actualFee: "30.0", listFee: "25.0", buyerPaidFee: "5.0",
			want: "5",
		},
		{
			name:      "threshold value is high tier",
			channel:   logisticsSellerFleet,
			unitPrice: "79", actualFee: "20.0", listFee: "15.0", buyerPaidFee: "0",
			want: "5.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adjustedShippingCost(tt.channel, d(tt.unitPrice), d(tt.actualFee), d(tt.listFee), d(tt.buyerPaidFee))
			if !got.Equal(d(tt.want)) {
				t.Errorf("adjustedShippingCost() = %s, want %s", got, tt.want)
			}
		})
	}
}
