package sqlengine

import "errors"

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil database handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrUnknownDialect is returned by WithDialect for a dialect other than postgres or sqlite.
	ErrUnknownDialect = errors.New("unknown sql dialect")

	// ErrUnknownDriver is returned by Open for a driver other than pgx, postgres or sqlite.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrOpeningConnectionFailed is returned, joined with the cause, when Open cannot connect.
	ErrOpeningConnectionFailed = errors.New("opening database connection failed")

	// ErrBuildingQueryFailed is returned, joined with the cause, when goqu cannot render a statement.
	ErrBuildingQueryFailed = errors.New("building sql query failed")

	// ErrQueryFailed is returned, joined with the driver error, when a query fails.
	ErrQueryFailed = errors.New("sql query failed")

	// ErrExecFailed is returned, joined with the driver error, when a statement fails.
	ErrExecFailed = errors.New("sql exec failed")

	// ErrScanningRowFailed is returned, joined with the driver error, when a row cannot be scanned.
	ErrScanningRowFailed = errors.New("scanning sql row failed")

	// ErrNoRowsAffected is returned by Update when no row matches the primary key.
	ErrNoRowsAffected = errors.New("no rows affected")
)
