package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db    *sql.DB
	owned bool
}

// NewSQLAdapter creates a new SQL adapter. When owned is true, Close closes db.
func NewSQLAdapter(db *sql.DB, owned bool) *SQLAdapter {
	return &SQLAdapter{db: db, owned: owned}
}

// Query executes a query using the sql.DB and returns wrapped rows.
func (s *SQLAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a query using the sql.DB and returns wrapped result.
func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// Close closes the sql.DB if the adapter owns it.
func (s *SQLAdapter) Close() error {
	if !s.owned {
		return nil
	}

	return s.db.Close()
}
