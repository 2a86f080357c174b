package recordstest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql

	"github.com/yriy-kuskov/cakereact-core/records/sqlengine"
)

// EnvPostgresDSN names the env variable holding the DSN of the PostgreSQL test database.
const EnvPostgresDSN = "RECORDS_TEST_POSTGRES_DSN"

// Engine handle types returned by PostgresEngines.
const (
	EnginePGXPool = "pgxpool"
	EngineSQLDB   = "sqldb"
	EngineSQLX    = "sqlx"
)

// PostgresDSN returns the DSN of the test database and skips t when EnvPostgresDSN is unset.
func PostgresDSN(t testing.TB) string {
	t.Helper()

	dsn := os.Getenv(EnvPostgresDSN)
	if dsn == "" {
		t.Skipf("%s is not set", EnvPostgresDSN)
	}

	return dsn
}

// PostgresEngines opens the test database once per handle type and returns an Engine for each.
// The handles are closed when t finishes.
func PostgresEngines(t testing.TB, options ...sqlengine.Option) map[string]*sqlengine.Engine {
	t.Helper()

	dsn := PostgresDSN(t)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	xdb := sqlx.NewDb(db, "postgres")

	engines := make(map[string]*sqlengine.Engine, 3)
	for name, open := range map[string]func() (*sqlengine.Engine, error){
		EnginePGXPool: func() (*sqlengine.Engine, error) { return sqlengine.NewEngineFromPGXPool(pool, options...) },
		EngineSQLDB:   func() (*sqlengine.Engine, error) { return sqlengine.NewEngineFromSQLDB(db, options...) },
		EngineSQLX:    func() (*sqlengine.Engine, error) { return sqlengine.NewEngineFromSQLX(xdb, options...) },
	} {
		engine, openErr := open()
		if openErr != nil {
			t.Fatalf("create %s engine: %v", name, openErr)
		}
		engines[name] = engine
	}

	return engines
}
