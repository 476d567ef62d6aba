// Package migrations embeds the SQL schema for the document store. Files are
// applied in lexical order by cmd/migrate and recorded in schema_migrations.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// GetFS returns the embedded migration files.
func GetFS() fs.FS {
	return files
}
