// Package migrations embeds the Postgres schema of the note records.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
