package adapters

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	pool        *pgxpool.Pool
	replicaPool *pgxpool.Pool // optional replica for eventually consistent reads
	owned       bool
}

// NewPGXAdapter creates a new PGX adapter with a primary pool. When owned is true, Close closes the pool.
func NewPGXAdapter(pool *pgxpool.Pool, owned bool) *PGXAdapter {
	return &PGXAdapter{pool: pool, owned: owned}
}

// NewPGXAdapterWithReplica creates a new PGX adapter with a primary pool and a replica pool.
func NewPGXAdapterWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool, owned bool) *PGXAdapter {
	return &PGXAdapter{pool: pool, replicaPool: replica, owned: owned}
}

// Query executes a query on the replica pool when the context asks for eventual consistency
// and a replica is configured, otherwise on the primary pool.
func (p *PGXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	pool := p.pool

	if p.replicaPool != nil && records.GetConsistencyLevel(ctx) == records.EventualConsistency {
		pool = p.replicaPool
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Exec executes a query using the primary pool and returns wrapped result.
func (p *PGXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	tag, err := p.pool.Exec(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxResult{tag: tag}, nil
}

// Close closes the pools if the adapter owns them.
func (p *PGXAdapter) Close() error {
	if !p.owned {
		return nil
	}

	p.pool.Close()
	if p.replicaPool != nil {
		p.replicaPool.Close()
	}

	return nil
}

// pgxRows wraps pgx.Rows to implement the DBRows interface.
type pgxRows struct {
	rows pgx.Rows
}

// Next advances to the next row.
func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

// ScanMap copies the current row into a map keyed by column name.
func (p *pgxRows) ScanMap() (map[string]any, error) {
	values, err := p.rows.Values()
	if err != nil {
		return nil, err
	}

	fields := p.rows.FieldDescriptions()
	row := make(map[string]any, len(fields))
	for i, field := range fields {
		row[field.Name] = fromPGXValue(values[i])
	}

	return row, nil
}

// Err returns the error, if any, that was encountered during iteration.
func (p *pgxRows) Err() error {
	return p.rows.Err()
}

// Close closes the rows iterator.
func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

// fromPGXValue converts pgx-specific decoded values into plain Go values.
func fromPGXValue(v any) any {
	switch typed := v.(type) {
	case [16]byte:
		return uuid.UUID(typed).String()
	case pgtype.Numeric:
		if !typed.Valid {
			return nil
		}
		f, err := typed.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// pgxResult wraps pgconn.CommandTag to implement the DBResult interface.
type pgxResult struct {
	tag pgconn.CommandTag
}

// RowsAffected returns the number of rows affected by the command.
func (p *pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}
