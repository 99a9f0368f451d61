// Package migrations embeds the findings store schema, one directory per
// SQL dialect. Files apply in filename order.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// ForDriver returns the migration files for a database/sql driver name,
// rooted at the dialect directory.
func ForDriver(driver string) (fs.FS, error) {
	var dir string
	switch driver {
	case "sqlite3":
		dir = "sqlite"
	case "postgres":
		dir = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return fs.Sub(files, dir)
}
