package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db    *sqlx.DB
	owned bool
}

// NewSQLXAdapter creates a new SQLX adapter. When owned is true, Close closes db.
func NewSQLXAdapter(db *sqlx.DB, owned bool) *SQLXAdapter {
	return &SQLXAdapter{db: db, owned: owned}
}

// Query executes a query using the sqlx.DB and returns wrapped rows.
func (s *SQLXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &sqlxRows{rows: rows}, nil
}

// Exec executes a query using the sqlx.DB and returns wrapped result.
func (s *SQLXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// Close closes the sqlx.DB if the adapter owns it.
func (s *SQLXAdapter) Close() error {
	if !s.owned {
		return nil
	}

	return s.db.Close()
}

// sqlxRows wraps sqlx.Rows to implement the DBRows interface.
type sqlxRows struct {
	rows *sqlx.Rows
}

// Next advances to the next row.
func (s *sqlxRows) Next() bool {
	return s.rows.Next()
}

// ScanMap copies the current row into a map keyed by column name.
func (s *sqlxRows) ScanMap() (map[string]any, error) {
	row := make(map[string]any)
	if err := s.rows.MapScan(row); err != nil {
		return nil, err
	}

	return row, nil
}

// Err returns the error, if any, that was encountered during iteration.
func (s *sqlxRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *sqlxRows) Close() error {
	return s.rows.Close()
}
