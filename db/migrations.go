// Package db embeds the SQL schema.
package db

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// UpMigrations returns the contents of every *.up.sql file in name order.
func UpMigrations() ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	statements := make([]string, 0, len(names))
	for _, name := range names {
		payload, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if stmt := strings.TrimSpace(string(payload)); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("no migration files found")
	}
	return statements, nil
}
