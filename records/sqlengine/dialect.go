package sqlengine

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

func init() {
	goqu.RegisterDialect(DialectSQLite, sqliteDialectOptions())
}

// sqliteDialectOptions is goqu's sqlite3 dialect with RETURNING enabled (SQLite 3.35+).
func sqliteDialectOptions() *goqu.SQLDialectOptions {
	opts := sqlite3.DialectOptions()
	defaults := goqu.DefaultDialectOptions()

	opts.SupportsReturn = true
	opts.InsertSQLOrder = defaults.InsertSQLOrder
	opts.UpdateSQLOrder = defaults.UpdateSQLOrder
	opts.DeleteSQLOrder = defaults.DeleteSQLOrder

	return opts
}

func knownDialect(name string) bool {
	return name == DialectPostgres || name == DialectSQLite
}
