// Package migrations embeds the schema of the phone's ack outbox.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
