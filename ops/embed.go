// Package ops embeds the SQL migrations and seeds shipped with the binaries.
package ops

import "embed"

const (
	MigrationsDir = "migrations/sql"
	SeedsDir      = "seeds"
)

//go:embed migrations/sql/*.sql seeds/*.sql
var FS embed.FS
