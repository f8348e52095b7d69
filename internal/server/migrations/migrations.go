// Package migrations embeds the SQL schema and seed migrations, one
// directory per database dialect.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// ForDriver returns the migration tree for "postgres" or "sqlite",
// rooted so that goose sees the .sql files at the top level.
func ForDriver(driver string) (fs.FS, error) {
	switch driver {
	case "postgres", "sqlite":
		return fs.Sub(Migrations, driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
