// Package migrations embeds SQL migrations for the Postgres backend.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
