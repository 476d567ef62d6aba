package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/pkg/errors"
	"github.com/vendalink/ordersync/internal/store"
)

const (
	ordersCollection     = "orders"
	categoriesCollection = "categories"
)

// OrderRepository implements order.Repository over the document store
type OrderRepository struct {
	store store.Store
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(st store.Store) order.Repository {
	return &OrderRepository{store: st}
}

// UpsertBatch merge-writes a batch of orders in one durable commit
func (r *OrderRepository) UpsertBatch(ctx context.Context, userID int64, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	docs := make(map[string]json.RawMessage, len(orders))
	for _, o := range orders {
		data, err := json.Marshal(o)
		if err != nil {
			return errors.PersistenceFailure(err)
		}
		docs[o.ID] = data
	}

	if err := r.store.SetBatch(ctx, userID, ordersCollection, docs); err != nil {
		return errors.PersistenceFailure(err)
	}

	return nil
}

// Get retrieves one order by canonical id
func (r *OrderRepository) Get(ctx context.Context, userID int64, id string) (*order.Order, error) {
	data, err := r.store.Get(ctx, userID, ordersCollection, id)
	if err == store.ErrNotFound {
		return nil, errors.NotFound("Order")
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get order", err)
	}

	var o order.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, errors.DatabaseError("failed to decode order", err)
	}

	return &o, nil
}

// List retrieves orders with filtering and offset pagination
func (r *OrderRepository) List(ctx context.Context, userID int64, filter order.Filter, limit, offset int) ([]*order.Order, int64, error) {
	var filters []store.Filter
	if filter.Provider != "" {
		filters = append(filters, store.Filter{Field: "provider", Value: filter.Provider})
	}
	if filter.Status != "" {
		filters = append(filters, store.Filter{Field: "status", Value: filter.Status})
	}

	total, err := r.store.Count(ctx, userID, ordersCollection, filters)
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to count orders", err)
	}

	docs, err := r.store.Query(ctx, userID, ordersCollection, store.Query{
		Filters: filters,
		OrderBy: "created_at",
		Desc:    true,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, errors.DatabaseError("failed to list orders", err)
	}

	orders := make([]*order.Order, 0, len(docs))
	for _, data := range docs {
		var o order.Order
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, 0, errors.DatabaseError("failed to decode order", err)
		}
		orders = append(orders, &o)
	}

	return orders, total, nil
}

// UpsertCategories creates category reference documents if absent, so
// downstream consumers can join orders to categories by identifier.
func (r *OrderRepository) UpsertCategories(ctx context.Context, userID int64, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		id := categorySlug(name)
		if seen[id] {
			continue
		}
		seen[id] = true

		doc, err := json.Marshal(map[string]string{"id": id, "name": name})
		if err != nil {
			return errors.DatabaseError("failed to encode category", err)
		}

		if err := r.store.SetIfAbsent(ctx, userID, categoriesCollection, id, doc); err != nil {
			return errors.DatabaseError("failed to upsert category", err)
		}
	}

	return nil
}

func categorySlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
