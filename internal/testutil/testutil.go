package testutil

import (
	"database/sql"
	"testing"

	"github.com/vendalink/ordersync/internal/store"

	_ "modernc.org/sqlite"
)

// NewTestStore creates an in-memory SQLite document store for testing
func NewTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		user_id INTEGER NOT NULL,
		collection TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, collection, doc_id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, doc_id);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return store.NewWithDB(db, "sqlite")
}
