// Package migrations embeds the SQL schema files into the binary.
package migrations

import "embed"

// FS holds the versioned migration files, passed to database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
