package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver for database/sql
	_ "modernc.org/sqlite" // sqlite driver for database/sql

	"github.com/yriy-kuskov/cakereact-core/records/config"
	"github.com/yriy-kuskov/cakereact-core/records/sqlengine/internal/adapters"
)

const (
	sqlDriverPostgres = "postgres"
	sqlDriverSQLite   = "sqlite"
	sqliteMemoryDSN   = ":memory:"
)

// Open connects to the database described by conn and returns an Engine that owns the connection.
// Close the Engine to release it.
//
// Drivers: "pgx" uses a pgxpool.Pool (plus a replica pool when ReplicaDSN is set), "postgres" uses
// sqlx over lib/pq, "sqlite" uses database/sql over modernc.org/sqlite. options are applied after the
// dialect derived from conn.
func Open(ctx context.Context, conn config.Connection, options ...Option) (*Engine, error) {
	var (
		db      adapters.DBAdapter
		dialect = DialectPostgres
		err     error
	)

	switch conn.Driver {
	case config.DriverPGX:
		db, err = openPGX(ctx, conn)
	case config.DriverPostgres:
		db, err = openSQLX(ctx, conn)
	case config.DriverSQLite:
		dialect = DialectSQLite
		db, err = openSQLite(ctx, conn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, conn.Driver)
	}

	if err != nil {
		return nil, errors.Join(ErrOpeningConnectionFailed, err)
	}

	if conn.Dialect != "" {
		dialect = conn.Dialect
	}

	engine, err := newEngine(db, append([]Option{WithDialect(dialect)}, options...))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return engine, nil
}

func openPGX(ctx context.Context, conn config.Connection) (adapters.DBAdapter, error) {
	primary, err := newPGXPool(ctx, conn.DSN, conn)
	if err != nil {
		return nil, err
	}

	if conn.ReplicaDSN == "" {
		return adapters.NewPGXAdapter(primary, true), nil
	}

	replica, err := newPGXPool(ctx, conn.ReplicaDSN, conn)
	if err != nil {
		primary.Close()
		return nil, err
	}

	return adapters.NewPGXAdapterWithReplica(primary, replica, true), nil
}

func newPGXPool(ctx context.Context, dsn string, conn config.Connection) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if conn.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(conn.MaxOpenConns) //nolint:gosec
	}

	if conn.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = conn.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func openSQLX(ctx context.Context, conn config.Connection) (adapters.DBAdapter, error) {
	db, err := sqlx.Open(sqlDriverPostgres, conn.DSN)
	if err != nil {
		return nil, err
	}

	applyPoolSettings(db.DB, conn)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return adapters.NewSQLXAdapter(db, true), nil
}

func openSQLite(ctx context.Context, conn config.Connection) (adapters.DBAdapter, error) {
	db, err := sql.Open(sqlDriverSQLite, conn.DSN)
	if err != nil {
		return nil, err
	}

	applyPoolSettings(db, conn)

	// every connection to an in-memory database sees its own database
	if strings.Contains(conn.DSN, sqliteMemoryDSN) || strings.Contains(conn.DSN, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return adapters.NewSQLAdapter(db, true), nil
}

func applyPoolSettings(db *sql.DB, conn config.Connection) {
	if conn.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conn.MaxOpenConns)
	}

	if conn.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conn.MaxIdleConns)
	}

	if conn.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(conn.ConnMaxLifetime)
	}
}
