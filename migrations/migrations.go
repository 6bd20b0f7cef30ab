// Package migrations embeds the SQL schema history for the migrate
// binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
