package repository

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded sqlite and postgres migrations
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
