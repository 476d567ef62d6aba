package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// SystemUser is the namespace for documents not owned by any user
// (e.g. the user registry itself).
const SystemUser int64 = 0

// Filter is an equality filter over a top-level document field.
type Filter struct {
	Field string
	Value string
}

// Query describes a filtered, ordered, offset-paginated document query.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Store is the namespaced document collection contract the sync engine
// persists through. Documents are JSON objects keyed by
// user → collection → document id. Set and SetBatch use merge semantics:
// top-level fields present in the incoming document overwrite stored
// values, fields absent from it are preserved.
type Store interface {
	// Get retrieves one document
	Get(ctx context.Context, userID int64, collection, id string) (json.RawMessage, error)

	// Set merge-writes one document
	Set(ctx context.Context, userID int64, collection, id string, doc json.RawMessage) error

	// SetIfAbsent creates the document only when it does not exist yet
	SetIfAbsent(ctx context.Context, userID int64, collection, id string, doc json.RawMessage) error

	// SetBatch merge-writes a batch of documents in one atomic commit
	SetBatch(ctx context.Context, userID int64, collection string, docs map[string]json.RawMessage) error

	// Delete removes one document
	Delete(ctx context.Context, userID int64, collection, id string) error

	// Query retrieves documents matching equality filters with ordering
	// and offset pagination
	Query(ctx context.Context, userID int64, collection string, q Query) ([]json.RawMessage, error)

	// Count counts documents matching equality filters
	Count(ctx context.Context, userID int64, collection string, filters []Filter) (int64, error)

	// QueryAll retrieves matching documents across all user namespaces
	QueryAll(ctx context.Context, collection string, q Query) ([]json.RawMessage, error)
}

// Merge shallow-merges incoming over base at the top level and returns the
// combined document. Incoming fields win; base fields missing from incoming
// survive. Both inputs must be JSON objects.
func Merge(base, incoming json.RawMessage) (json.RawMessage, error) {
	var baseMap, inMap map[string]json.RawMessage

	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(incoming, &inMap); err != nil {
		return nil, err
	}

	for k, v := range inMap {
		baseMap[k] = v
	}

	return json.Marshal(baseMap)
}
