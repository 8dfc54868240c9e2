// Package migrations embeds the goose SQL migrations for the orders table,
// one directory per database dialect.
package migrations

import (
	"embed"
	"fmt"
)

// FS holds the SQL files under sql/<dialect>/.
//
//go:embed sql/*/*.sql
var FS embed.FS

// Dir returns the directory inside FS holding the migrations for a goose
// dialect ("postgres", "mysql" or "sqlite3").
func Dir(dialect string) (string, error) {
	switch dialect {
	case "postgres":
		return "sql/postgres", nil
	case "mysql":
		return "sql/mysql", nil
	case "sqlite3":
		return "sql/sqlite", nil
	default:
		return "", fmt.Errorf("no migrations for dialect %s", dialect)
	}
}
