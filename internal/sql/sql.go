// Package sql embeds the schema migrations applied by the migrate command
// and the export path.
package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS
