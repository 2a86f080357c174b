package sqlengine_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yriy-kuskov/cakereact-core/records"
	"github.com/yriy-kuskov/cakereact-core/records/sqlengine"
	"github.com/yriy-kuskov/cakereact-core/testutil/recordstest"
)

func setupSQLMock(t *testing.T, options ...sqlengine.Option) (*sqlengine.Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine, err := sqlengine.NewEngineFromSQLDB(db, options...)
	require.NoError(t, err)

	return engine, mock
}

func Test_NewEngine_When_Connection_Is_Nil(t *testing.T) {
	_, errSQL := sqlengine.NewEngineFromSQLDB(nil)
	_, errSQLX := sqlengine.NewEngineFromSQLX(nil)
	_, errPGX := sqlengine.NewEngineFromPGXPool(nil)
	_, errReplica := sqlengine.NewEngineFromPGXPoolWithReplica(nil, nil)

	assert.ErrorIs(t, errSQL, sqlengine.ErrNilDatabaseConnection)
	assert.ErrorIs(t, errSQLX, sqlengine.ErrNilDatabaseConnection)
	assert.ErrorIs(t, errPGX, sqlengine.ErrNilDatabaseConnection)
	assert.ErrorIs(t, errReplica, sqlengine.ErrNilDatabaseConnection)
}

func Test_NewEngine_When_Dialect_Is_Unknown(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = sqlengine.NewEngineFromSQLDB(db, sqlengine.WithDialect("oracle"))

	assert.ErrorIs(t, err, sqlengine.ErrUnknownDialect)
}

func Test_Find_Renders_Conditions_Order_And_Limit(t *testing.T) {
	// arrange
	engine, mock := setupSQLMock(t)
	mock.ExpectQuery(`SELECT * FROM "products" WHERE ("price" = 100) ORDER BY "name" DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(int64(1), "Tea", int64(100)))

	// act
	rows, err := engine.Find(context.Background(), "products", records.QueryOptions{
		Conditions: records.Conditions{"price": 100},
		Order:      records.OrderBy("name", records.Desc),
		Limit:      1,
	}, nil)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []records.Record{{"id": int64(1), "name": "Tea", "price": int64(100)}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Find_Renders_In_And_Is_Null(t *testing.T) {
	// arrange
	engine, mock := setupSQLMock(t)
	mock.ExpectQuery(`SELECT * FROM "products" WHERE (("category_id" IN (1, 2)) AND ("deleted_at" IS NULL))`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// act
	rows, err := engine.Find(context.Background(), "products", records.QueryOptions{
		Conditions: records.Conditions{"deleted_at": nil, "category_id": []int{1, 2}},
	}, nil)

	// assert
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Find_Loads_BelongsTo(t *testing.T) {
	// arrange
	engine, mock := setupSQLMock(t)
	mock.ExpectQuery(`SELECT * FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id"}).
			AddRow(int64(1), int64(7)).
			AddRow(int64(2), nil).
			AddRow(int64(3), int64(7)))
	mock.ExpectQuery(`SELECT * FROM "categories" WHERE ("id" IN (7))`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "Drinks"))

	relation := records.RelationDescriptor{
		Alias:            "category",
		Kind:             records.BelongsTo,
		Table:            "categories",
		ForeignKey:       "category_id",
		TargetPrimaryKey: "id",
		OwnerTable:       "products",
		OwnerPrimaryKey:  "id",
	}

	// act
	rows, err := engine.Find(context.Background(), "products", records.QueryOptions{}, []records.RelationDescriptor{relation})

	// assert
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, records.Record{"id": int64(7), "name": "Drinks"}, rows[0]["category"])
	assert.Nil(t, rows[1]["category"])
	assert.True(t, rows[1].Has("category"))
	assert.Equal(t, rows[0]["category"], rows[2]["category"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Create_Uses_Returning(t *testing.T) {
	// arrange
	engine, mock := setupSQLMock(t)
	mock.ExpectQuery(`INSERT INTO "products" ("attributes", "name") VALUES ('{"color":"green"}', 'Tea') RETURNING *`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "attributes"}).
			AddRow(int64(5), "Tea", []byte(`{"color":"green"}`)))

	// act
	row, err := engine.Create(context.Background(), "products", records.Record{
		"name":       "Tea",
		"attributes": map[string]any{"color": "green"},
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, records.Record{"id": int64(5), "name": "Tea", "attributes": `{"color":"green"}`}, row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Update_Sets_All_Columns_But_Primary_Key(t *testing.T) {
	// arrange
	engine, mock := setupSQLMock(t)
	mock.ExpectQuery(`UPDATE "products" SET "name"='Tea',"price"=120 WHERE ("id" = 3) RETURNING *`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(int64(3), "Tea", int64(120)))

	// act
	row, err := engine.Update(context.Background(), "products", records.Record{"id": 3, "name": "Tea", "price": 120}, "id")

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(120), row["price"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Update_When_No_Row_Matches(t *testing.T) {
	// arrange
	engine, mock := setupSQLMock(t)
	mock.ExpectQuery(`UPDATE "products" SET "name"='Tea' WHERE ("id" = 404) RETURNING *`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	// act
	row, err := engine.Update(context.Background(), "products", records.Record{"id": 404, "name": "Tea"}, "id")

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrNoRowsAffected)
	assert.Nil(t, row)
}

func Test_Delete_Reports_Affected_Rows(t *testing.T) {
	testCases := []struct {
		description string
		affected    int64
		expected    bool
	}{
		{description: "row removed", affected: 1, expected: true},
		{description: "no such row", affected: 0, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			engine, mock := setupSQLMock(t)
			mock.ExpectExec(`DELETE FROM "products" WHERE ("id" = 3)`).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			// act
			deleted, err := engine.Delete(context.Background(), "products", 3, "id")

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expected, deleted)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func Test_Observability_When_Query_Fails(t *testing.T) {
	// setup
	logSpy := recordstest.NewLogHandlerSpy(false)
	metricsSpy := recordstest.NewMetricsCollectorSpy()
	tracingSpy := recordstest.NewTracingCollectorSpy()
	engine, mock := setupSQLMock(t,
		sqlengine.WithLogger(logSpy.Logger()),
		sqlengine.WithMetrics(metricsSpy),
		sqlengine.WithTracing(tracingSpy),
	)

	cause := errors.New("relation \"products\" does not exist")
	mock.ExpectQuery(`SELECT * FROM "products"`).WillReturnError(cause)

	// act
	_, err := engine.Find(context.Background(), "products", records.QueryOptions{}, nil)

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrQueryFailed)
	assert.ErrorIs(t, err, cause)

	assert.True(t, logSpy.HasLogWithMessage(slog.LevelDebug, "executed sql for: find").WithDurationMS().Assert())
	assert.True(t, logSpy.HasLog(slog.LevelError, "database query execution failed"))
	assert.True(t, metricsSpy.HasCounterRecord("records_sql_errors_total", map[string]string{
		"operation":  "find",
		"error_type": "query_error",
	}))
	assert.True(t, metricsSpy.HasDurationRecord("records_sql_query_duration_seconds", map[string]string{
		"operation": "find",
		"status":    records.StatusError,
	}))

	span, found := tracingSpy.FindSpan("records.sql.find")
	require.True(t, found)
	assert.Equal(t, records.StatusError, span.Status)
	assert.Equal(t, "query_error", span.EndAttributes["error_type"])
	assert.Equal(t, "postgres", span.StartAttributes["dialect"])
}

func Test_Observability_When_Find_Succeeds(t *testing.T) {
	// setup
	logSpy := recordstest.NewLogHandlerSpy(false)
	metricsSpy := recordstest.NewMetricsCollectorSpy()
	engine, mock := setupSQLMock(t,
		sqlengine.WithContextualLogger(logSpy.Logger()),
		sqlengine.WithMetrics(metricsSpy),
	)
	mock.ExpectQuery(`SELECT * FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	// act
	_, err := engine.Find(context.Background(), "products", records.QueryOptions{}, nil)

	// assert
	require.NoError(t, err)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, "records sql operation: find").
		WithAttribute("table", "products").
		WithAttribute("rows", "2").
		Assert())
	assert.True(t, metricsSpy.HasValueRecord("records_sql_rows", map[string]string{"operation": "find"}))
}
