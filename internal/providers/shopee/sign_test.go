package shopee

import "testing"

func TestSigner_Sign(t *testing.T) {
	s := NewSigner(123456, "testkey")

	tests := []struct {
		name   string
		path   string
		ts     int64
		token  string
		shopID string
		want   string
	}{
		{
			name: "shop level request",
			path: "/api/v2/order/get_order_list",
			ts:   1700000000, token: "tok", shopID: "99",
			want: "c160d5f9983faffe21e714b5ea02761fe9b199ba7b358156a2093e00d369ec1d",
		},
		{
			name: "partner level request omits token and shop",
			path: "/api/v2/auth/access_token/get",
			ts:   1700000000, token: "", shopID: "",
			want: "5bbb5d5fd7392dddc1741394d5edb5d9cee7ee3dad982d93548d036041f31f8d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sign(tt.path, tt.ts, tt.token, tt.shopID)
			if got != tt.want {
				t.Errorf("Sign() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSigner_TokenChangesSignature(t *testing.T) {
	s := NewSigner(123456, "testkey")

	a := s.Sign("/api/v2/order/get_order_detail", 1700000000, "tok-a", "99")
	b := s.Sign("/api/v2/order/get_order_detail", 1700000000, "tok-b", "99")
	if a == b {
		t.Error("signatures identical for different access tokens")
	}
}
