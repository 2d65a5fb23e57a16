// Package migrations embeds the SQL schema for the chats event log.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
