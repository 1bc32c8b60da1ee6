package migrations

import "embed"

// FS contains the embedded SQLite migrations for trackd persistence.
//
//go:embed *.sql
var FS embed.FS
