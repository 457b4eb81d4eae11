// Package migrations embeds the SQL schema for the postgres storage backend.
package migrations

import "embed"

// FS holds every *.sql migration, named for golang-migrate.
//
//go:embed *.sql
var FS embed.FS
