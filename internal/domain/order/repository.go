package order

import "context"

// Repository defines the interface for canonical order persistence.
// All writes use merge semantics: fields present in the incoming record
// overwrite stored values, fields absent from it are preserved.
type Repository interface {
	// UpsertBatch merge-writes a batch of orders in one durable commit
	UpsertBatch(ctx context.Context, userID int64, orders []*Order) error

	// Get retrieves one order by canonical id
	Get(ctx context.Context, userID int64, id string) (*Order, error)

	// List retrieves orders with filtering and offset pagination
	List(ctx context.Context, userID int64, filter Filter, limit, offset int) ([]*Order, int64, error)

	// UpsertCategories creates category reference documents if absent
	UpsertCategories(ctx context.Context, userID int64, names []string) error
}
