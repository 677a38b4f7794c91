// Package migrations embeds the goose SQL migration files so binaries can
// apply them without shipping the directory alongside the executable.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
