package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/yriy-kuskov/cakereact-core/records"
	"github.com/yriy-kuskov/cakereact-core/records/sqlengine/internal/adapters"
)

const (
	logMsgBuildQueryFailed  = "failed to build sql query"
	logMsgDBQueryFailed     = "database query execution failed"
	logMsgDBExecFailed      = "database statement execution failed"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgRowsAffectedError = "failed to get rows affected count"
	logMsgSQLExecuted       = "executed sql for: "
	logMsgOperation         = "records sql operation: "
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrTable            = "table"
	logAttrRows             = "rows"
	logAttrDurationMS       = "duration_ms"
	operationFind           = "find"
	operationFindByID       = "find_by_id"
	operationCreate         = "create"
	operationUpdate         = "update"
	operationDelete         = "delete"
	operationLoadRelation   = "load_relation"
)

// Engine is a records.Adapter over a SQL database.
//
// Statements are rendered by goqu with values interpolated, so the same statement text is
// sent through pgx, database/sql and sqlx alike.
type Engine struct {
	db          adapters.DBAdapter
	dialect     goqu.DialectWrapper
	dialectName string

	logger           records.Logger
	contextualLogger records.ContextualLogger
	metricsCollector records.MetricsCollector
	tracingCollector records.TracingCollector
}

var _ records.Adapter = (*Engine)(nil)

func newEngine(db adapters.DBAdapter, options []Option) (*Engine, error) {
	e := &Engine{
		db:          db,
		dialect:     goqu.Dialect(DialectPostgres),
		dialectName: DialectPostgres,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
// The caller keeps ownership of the pool.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db, false), options)
}

// NewEngineFromPGXPoolWithReplica creates a new Engine using a primary and a replica pgx Pool.
// Reads use the replica when the context carries records.WithEventualConsistency.
func NewEngineFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapterWithReplica(db, replica, false), options)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
// The caller keeps ownership of db.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db, false), options)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
// The caller keeps ownership of db.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db, false), options)
}

// Dialect returns the name of the SQL dialect in use.
func (e *Engine) Dialect() string {
	return e.dialectName
}

// Close releases the database handles the Engine opened itself (see Open).
func (e *Engine) Close() error {
	return e.db.Close()
}

// Find returns the rows of table matching query, with relations attached.
func (e *Engine) Find(
	ctx context.Context,
	table string,
	query records.QueryOptions,
	relations []records.RelationDescriptor,
) (rows []records.Record, err error) {
	ctx, span := e.startSpan(ctx, operationFind, table)
	defer func() { e.finishSpan(span, err, len(rows)) }()

	sqlQuery, err := e.buildSelect(table, query)
	if err != nil {
		return nil, e.buildFailed(ctx, operationFind, err)
	}

	start := time.Now()

	rows, err = e.queryRecords(ctx, operationFind, sqlQuery)
	if err != nil {
		return nil, err
	}

	if err = e.loadRelations(ctx, rows, relations); err != nil {
		return nil, err
	}

	e.recordRowsMetrics(ctx, operationFind, len(rows))
	e.logOperation(ctx, operationFind,
		logAttrTable, table,
		logAttrRows, len(rows),
		logAttrDurationMS, toMilliseconds(time.Since(start)))

	return rows, nil
}

// FindByID returns the row whose primaryKey equals id, or nil without an error when there is none.
func (e *Engine) FindByID(
	ctx context.Context,
	table string,
	id any,
	primaryKey string,
	relations []records.RelationDescriptor,
) (row records.Record, err error) {
	ctx, span := e.startSpan(ctx, operationFindByID, table)
	defer func() { e.finishSpan(span, err, len(row)) }()

	sqlQuery, _, err := e.dialect.From(table).Where(goqu.C(primaryKey).Eq(id)).Limit(1).ToSQL()
	if err != nil {
		return nil, e.buildFailed(ctx, operationFindByID, err)
	}

	rows, err := e.queryRecords(ctx, operationFindByID, sqlQuery)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil //nolint:nilnil
	}

	if err = e.loadRelations(ctx, rows[:1], relations); err != nil {
		return nil, err
	}

	return rows[0], nil
}

// Create inserts data and returns the row as stored, including generated columns.
func (e *Engine) Create(ctx context.Context, table string, data records.Record) (row records.Record, err error) {
	ctx, span := e.startSpan(ctx, operationCreate, table)
	defer func() { e.finishSpan(span, err, len(row)) }()

	values, err := toColumnValues(data)
	if err != nil {
		return nil, e.buildFailed(ctx, operationCreate, err)
	}

	sqlQuery, _, err := e.dialect.Insert(table).Rows(values).Returning(goqu.Star()).ToSQL()
	if err != nil {
		return nil, e.buildFailed(ctx, operationCreate, err)
	}

	rows, err := e.queryRecords(records.WithStrongConsistency(ctx), operationCreate, sqlQuery)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: insert into %s returned no row", ErrNoRowsAffected, table)
	}

	e.logOperation(ctx, operationCreate, logAttrTable, table)

	return rows[0], nil
}

// Update writes every column of data except primaryKey to the row identified by data[primaryKey]
// and returns the updated row. It returns ErrNoRowsAffected when no row matches.
func (e *Engine) Update(
	ctx context.Context,
	table string,
	data records.Record,
	primaryKey string,
) (row records.Record, err error) {
	ctx, span := e.startSpan(ctx, operationUpdate, table)
	defer func() { e.finishSpan(span, err, len(row)) }()

	id := data[primaryKey]
	set := data.Clone()
	delete(set, primaryKey)

	if len(set) == 0 {
		row, err = e.FindByID(records.WithStrongConsistency(ctx), table, id, primaryKey, nil)
		if err != nil {
			return nil, err
		}

		if row == nil {
			return nil, fmt.Errorf("%w: %s %v", ErrNoRowsAffected, table, id)
		}

		return row, nil
	}

	values, err := toColumnValues(set)
	if err != nil {
		return nil, e.buildFailed(ctx, operationUpdate, err)
	}

	sqlQuery, _, err := e.dialect.Update(table).
		Set(values).
		Where(goqu.C(primaryKey).Eq(id)).
		Returning(goqu.Star()).
		ToSQL()
	if err != nil {
		return nil, e.buildFailed(ctx, operationUpdate, err)
	}

	rows, err := e.queryRecords(records.WithStrongConsistency(ctx), operationUpdate, sqlQuery)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrNoRowsAffected, table, id)
	}

	e.logOperation(ctx, operationUpdate, logAttrTable, table)

	return rows[0], nil
}

// Delete removes the row whose primaryKey equals id and reports whether a row was removed.
func (e *Engine) Delete(ctx context.Context, table string, id any, primaryKey string) (deleted bool, err error) {
	ctx, span := e.startSpan(ctx, operationDelete, table)
	affected := 0
	defer func() { e.finishSpan(span, err, affected) }()

	sqlQuery, _, err := e.dialect.Delete(table).Where(goqu.C(primaryKey).Eq(id)).ToSQL()
	if err != nil {
		return false, e.buildFailed(ctx, operationDelete, err)
	}

	start := time.Now()
	result, err := e.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, operationDelete, duration)

	if err != nil {
		e.recordDurationMetrics(ctx, operationDelete, records.StatusError, duration)
		e.recordErrorMetrics(ctx, operationDelete, errorTypeExec)
		e.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)

		return false, errors.Join(ErrExecFailed, err)
	}

	e.recordDurationMetrics(ctx, operationDelete, records.StatusSuccess, duration)

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		e.logError(ctx, logMsgRowsAffectedError, err)
		return false, errors.Join(ErrExecFailed, err)
	}

	affected = int(rowsAffected)
	e.recordRowsMetrics(ctx, operationDelete, affected)
	e.logOperation(ctx, operationDelete, logAttrTable, table, logAttrRows, affected)

	return rowsAffected > 0, nil
}

// queryRecords runs sqlQuery and scans every row into a Record.
func (e *Engine) queryRecords(ctx context.Context, operation, sqlQuery string) ([]records.Record, error) {
	start := time.Now()
	rows, err := e.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, operation, duration)

	if err != nil {
		e.recordDurationMetrics(ctx, operation, records.StatusError, duration)
		e.recordErrorMetrics(ctx, operation, errorTypeQuery)
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)

		return nil, errors.Join(ErrQueryFailed, err)
	}
	defer e.closeRows(ctx, rows)

	e.recordDurationMetrics(ctx, operation, records.StatusSuccess, duration)

	result := make([]records.Record, 0)
	for rows.Next() {
		scanned, scanErr := rows.ScanMap()
		if scanErr != nil {
			e.recordErrorMetrics(ctx, operation, errorTypeScan)
			e.logError(ctx, logMsgScanRowFailed, scanErr)

			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}

		result = append(result, fromColumnValues(scanned))
	}

	if err = rows.Err(); err != nil {
		e.recordErrorMetrics(ctx, operation, errorTypeQuery)
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)

		return nil, errors.Join(ErrQueryFailed, err)
	}

	return result, nil
}

// closeRows safely closes database rows and logs any errors.
func (e *Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

func (e *Engine) buildFailed(ctx context.Context, operation string, err error) error {
	e.recordErrorMetrics(ctx, operation, errorTypeBuild)
	e.logError(ctx, logMsgBuildQueryFailed, err)

	return errors.Join(ErrBuildingQueryFailed, err)
}

// classifyError maps an engine error to the error_type span attribute.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrBuildingQueryFailed):
		return errorTypeBuild
	case errors.Is(err, ErrExecFailed):
		return errorTypeExec
	case errors.Is(err, ErrScanningRowFailed):
		return errorTypeScan
	default:
		return errorTypeQuery
	}
}
