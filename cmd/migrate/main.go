package main

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/store"
	"github.com/vendalink/ordersync/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	db := st.DB()

	fmt.Println("Connected to database successfully")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name        TEXT PRIMARY KEY,
			executed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrations table: %v\n", err)
		os.Exit(1)
	}

	entries, err := fs.Glob(migrations.GetFS(), "*.sql")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migrations: %v\n", err)
		os.Exit(1)
	}
	sort.Strings(entries)

	param := "$1"
	epoch := "extract(epoch from now())::bigint"
	if cfg.Database.Driver == "sqlite" {
		param = "?"
		epoch = "strftime('%s','now')"
	}

	applied := 0
	for _, name := range entries {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = `+param, name).Scan(&exists)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to check migration %s: %v\n", name, err)
			os.Exit(1)
		}
		if exists > 0 {
			continue
		}

		content, err := fs.ReadFile(migrations.GetFS(), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration %s: %v\n", name, err)
			os.Exit(1)
		}

		if _, err := db.Exec(string(content)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to apply migration %s: %v\n", name, err)
			os.Exit(1)
		}

		record := `INSERT INTO schema_migrations (name, executed_at) VALUES (` + param + `, ` + epoch + `)`
		if _, err := db.Exec(record, name); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to record migration %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Printf("Applied migration %s\n", name)
		applied++
	}

	fmt.Printf("Done. %d migration(s) applied.\n", applied)
}
