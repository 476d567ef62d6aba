package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vendalink/ordersync/internal/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store over a relational documents table. SQLite is
// the default driver; postgres is supported for hosted deployments.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and returns a SQLStore.
func Open(cfg config.DatabaseConfig) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}

		// WAL mode for better concurrency
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}

		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)

	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
		)

		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}

		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db, driver: cfg.Driver}, nil
}

// NewWithDB wraps an existing connection (used by tests and the migrator).
func NewWithDB(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// DB exposes the underlying connection for the migration runner.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// fieldExpr returns the SQL expression extracting a top-level JSON field.
func (s *SQLStore) fieldExpr(field string) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("(data::jsonb ->> '%s')", field)
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

// Get retrieves one document
func (s *SQLStore) Get(ctx context.Context, userID int64, collection, id string) (json.RawMessage, error) {
	query := s.rebind(`SELECT data FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?`)

	var data []byte
	err := s.db.QueryRowContext(ctx, query, userID, collection, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return json.RawMessage(data), nil
}

// Set merge-writes one document
func (s *SQLStore) Set(ctx context.Context, userID int64, collection, id string, doc json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.mergeSet(ctx, tx, userID, collection, id, doc); err != nil {
		return err
	}

	return tx.Commit()
}

// SetIfAbsent creates the document only when it does not exist yet
func (s *SQLStore) SetIfAbsent(ctx context.Context, userID int64, collection, id string, doc json.RawMessage) error {
	query := s.rebind(`
		INSERT INTO documents (user_id, collection, doc_id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, collection, doc_id) DO NOTHING
	`)

	_, err := s.db.ExecContext(ctx, query, userID, collection, id, string(doc), time.Now().Unix())
	return err
}

// SetBatch merge-writes a batch of documents in one atomic commit
func (s *SQLStore) SetBatch(ctx context.Context, userID int64, collection string, docs map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for id, doc := range docs {
		if err := s.mergeSet(ctx, tx, userID, collection, id, doc); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// mergeSet reads the current document inside the transaction, merges the
// incoming fields over it and upserts the result.
func (s *SQLStore) mergeSet(ctx context.Context, tx *sql.Tx, userID int64, collection, id string, doc json.RawMessage) error {
	sel := s.rebind(`SELECT data FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?`)

	var existing []byte
	err := tx.QueryRowContext(ctx, sel, userID, collection, id).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	merged := doc
	if len(existing) > 0 {
		merged, err = Merge(json.RawMessage(existing), doc)
		if err != nil {
			return fmt.Errorf("failed to merge document %s/%s: %w", collection, id, err)
		}
	}

	upsert := s.rebind(`
		INSERT INTO documents (user_id, collection, doc_id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, collection, doc_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`)

	_, err = tx.ExecContext(ctx, upsert, userID, collection, id, string(merged), time.Now().Unix())
	return err
}

// Delete removes one document
func (s *SQLStore) Delete(ctx context.Context, userID int64, collection, id string) error {
	query := s.rebind(`DELETE FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?`)

	result, err := s.db.ExecContext(ctx, query, userID, collection, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Query retrieves documents matching equality filters with ordering and
// offset pagination
func (s *SQLStore) Query(ctx context.Context, userID int64, collection string, q Query) ([]json.RawMessage, error) {
	sqlQuery, args := s.buildQuery(&userID, collection, q)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocs(rows)
}

// QueryAll retrieves matching documents across all user namespaces
func (s *SQLStore) QueryAll(ctx context.Context, collection string, q Query) ([]json.RawMessage, error) {
	sqlQuery, args := s.buildQuery(nil, collection, q)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocs(rows)
}

// Count counts documents matching equality filters
func (s *SQLStore) Count(ctx context.Context, userID int64, collection string, filters []Filter) (int64, error) {
	var b strings.Builder
	b.WriteString(`SELECT COUNT(*) FROM documents WHERE user_id = ? AND collection = ?`)
	args := []interface{}{userID, collection}

	for _, f := range filters {
		fmt.Fprintf(&b, " AND %s = ?", s.fieldExpr(f.Field))
		args = append(args, f.Value)
	}

	var count int64
	err := s.db.QueryRowContext(ctx, s.rebind(b.String()), args...).Scan(&count)
	return count, err
}

func (s *SQLStore) buildQuery(userID *int64, collection string, q Query) (string, []interface{}) {
	var b strings.Builder
	var args []interface{}

	b.WriteString(`SELECT data FROM documents WHERE collection = ?`)
	args = append(args, collection)

	if userID != nil {
		b.WriteString(` AND user_id = ?`)
		args = append(args, *userID)
	}

	for _, f := range q.Filters {
		fmt.Fprintf(&b, " AND %s = ?", s.fieldExpr(f.Field))
		args = append(args, f.Value)
	}

	if q.OrderBy != "" {
		fmt.Fprintf(&b, " ORDER BY %s", s.fieldExpr(q.OrderBy))
		if q.Desc {
			b.WriteString(" DESC")
		}
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}

	return s.rebind(b.String()), args
}

func scanDocs(rows *sql.Rows) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(data))
	}
	return docs, rows.Err()
}
