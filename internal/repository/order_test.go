package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/repository"
	"github.com/vendalink/ordersync/internal/testutil"
)

func makeOrder(provider, id, status string, amount int64) *order.Order {
	return &order.Order{
		ID:          order.Key(provider, id),
		Provider:    provider,
		AccountID:   "acct-1",
		Status:      order.Status(status),
		CreatedAt:   time.Now(),
		GrossAmount: decimal.NewFromInt(amount),
	}
}

func TestUpsertBatchAndGet(t *testing.T) {
	repo := repository.NewOrderRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	orders := []*order.Order{
		makeOrder("bling", "100", "paid", 150),
		makeOrder("bling", "101", "pending", 90),
	}
	if err := repo.UpsertBatch(ctx, 1, orders); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	got, err := repo.Get(ctx, 1, "bling-100")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != order.StatusPaid {
		t.Errorf("Status = %s, want paid", got.Status)
	}
	if !got.GrossAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("GrossAmount = %s, want 150", got.GrossAmount)
	}
}

func TestUpsertBatchMergesResyncedOrder(t *testing.T) {
	repo := repository.NewOrderRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	first := makeOrder("shopee", "200", "pending", 75)
	first.TrackingCode = "BR999"
	if err := repo.UpsertBatch(ctx, 1, []*order.Order{first}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	// Re-sync delivers a status change. The domain struct always carries
	// all fields, so the tracking code rides along unchanged.
	second := makeOrder("shopee", "200", "shipped", 75)
	second.TrackingCode = "BR999"
	if err := repo.UpsertBatch(ctx, 1, []*order.Order{second}); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	got, err := repo.Get(ctx, 1, "shopee-200")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != order.StatusShipped {
		t.Errorf("Status = %s, want shipped", got.Status)
	}
	if got.TrackingCode != "BR999" {
		t.Errorf("TrackingCode = %s, want BR999", got.TrackingCode)
	}
}

func TestUpsertBatchEmptyIsNoop(t *testing.T) {
	repo := repository.NewOrderRepository(testutil.NewTestStore(t))

	if err := repo.UpsertBatch(context.Background(), 1, nil); err != nil {
		t.Errorf("UpsertBatch(nil) error = %v", err)
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	repo := repository.NewOrderRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	orders := []*order.Order{
		makeOrder("bling", "1", "paid", 10),
		makeOrder("bling", "2", "paid", 20),
		makeOrder("bling", "3", "cancelled", 30),
		makeOrder("shopee", "4", "paid", 40),
	}
	if err := repo.UpsertBatch(ctx, 1, orders); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	got, total, err := repo.List(ctx, 1, order.Filter{Provider: "bling", Status: "paid"}, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(got) != 2 {
		t.Errorf("List() returned %d orders, want 2", len(got))
	}
	for _, o := range got {
		if o.Provider != "bling" || o.Status != order.StatusPaid {
			t.Errorf("unexpected order in filtered listing: %s %s", o.Provider, o.Status)
		}
	}

	// Unfiltered count spans providers but not users.
	_, total, err = repo.List(ctx, 2, order.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 0 {
		t.Errorf("other user total = %d, want 0", total)
	}
}

func TestListPagination(t *testing.T) {
	repo := repository.NewOrderRepository(testutil.NewTestStore(t))
	ctx := context.Background()

	var orders []*order.Order
	for i := 0; i < 5; i++ {
		o := makeOrder("bling", string(rune('a'+i)), "paid", int64(i))
		o.CreatedAt = time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC)
		orders = append(orders, o)
	}
	if err := repo.UpsertBatch(ctx, 1, orders); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	page, total, err := repo.List(ctx, 1, order.Filter{}, 2, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("List() returned %d orders, want 2", len(page))
	}
	// Newest first: page 2 of size 2 holds the 3rd and 4th newest.
	if page[0].ID != "bling-c" {
		t.Errorf("first order = %s, want bling-c", page[0].ID)
	}
}

func TestUpsertCategoriesDedupes(t *testing.T) {
	st := testutil.NewTestStore(t)
	repo := repository.NewOrderRepository(st)
	ctx := context.Background()

	names := []string{"Roupas", "roupas", "  Calçados ", "", "Roupas / Infantil"}
	if err := repo.UpsertCategories(ctx, 1, names); err != nil {
		t.Fatalf("UpsertCategories() error = %v", err)
	}

	count, err := st.Count(ctx, 1, "categories", nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("category count = %d, want 3", count)
	}
}
