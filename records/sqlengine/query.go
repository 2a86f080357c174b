package sqlengine

import (
	"reflect"
	"slices"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	jsoniter "github.com/json-iterator/go"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// buildSelect renders SELECT * FROM table with the conditions, order and limit of query.
func (e *Engine) buildSelect(table string, query records.QueryOptions) (string, error) {
	ds := e.dialect.From(table)

	if where := conditionExpressions(query.Conditions); len(where) > 0 {
		ds = ds.Where(where...)
	}

	if query.Order != nil && query.Order.Column != "" {
		column := goqu.I(query.Order.Column)
		if query.Order.Direction == records.Desc {
			ds = ds.Order(column.Desc())
		} else {
			ds = ds.Order(column.Asc())
		}
	}

	if query.Limit > 0 {
		ds = ds.Limit(uint(query.Limit))
	}

	sqlQuery, _, err := ds.ToSQL()

	return sqlQuery, err
}

// conditionExpressions translates Conditions into goqu expressions in sorted column order.
// A nil value renders IS NULL, a slice renders IN, an empty slice matches nothing.
func conditionExpressions(conditions records.Conditions) []exp.Expression {
	columns := make([]string, 0, len(conditions))
	for column := range conditions {
		columns = append(columns, column)
	}
	slices.Sort(columns)

	expressions := make([]exp.Expression, 0, len(columns))
	for _, column := range columns {
		value := conditions[column]

		if isList(value) {
			if reflect.ValueOf(value).Len() == 0 {
				expressions = append(expressions, goqu.L("1 = 0"))
				continue
			}

			expressions = append(expressions, goqu.C(column).In(value))
			continue
		}

		if value == nil {
			expressions = append(expressions, goqu.C(column).IsNull())
			continue
		}

		expressions = append(expressions, goqu.C(column).Eq(value))
	}

	return expressions
}

// isList reports whether v is a slice other than []byte.
func isList(v any) bool {
	if v == nil {
		return false
	}

	if _, ok := v.([]byte); ok {
		return false
	}

	return reflect.TypeOf(v).Kind() == reflect.Slice
}

// toColumnValues prepares data for INSERT/UPDATE: nested maps and lists are stored as JSON text.
func toColumnValues(data records.Record) (goqu.Record, error) {
	values := make(goqu.Record, len(data))

	for column, value := range data {
		if value == nil {
			values[column] = nil
			continue
		}

		switch reflect.TypeOf(value).Kind() {
		case reflect.Map, reflect.Slice:
			if raw, ok := value.([]byte); ok {
				values[column] = raw
				continue
			}

			encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(value)
			if err != nil {
				return nil, err
			}
			values[column] = encoded

		default:
			values[column] = value
		}
	}

	return values, nil
}

// fromColumnValues turns a scanned row into a Record. Byte slices become strings.
func fromColumnValues(scanned map[string]any) records.Record {
	row := make(records.Record, len(scanned))

	for column, value := range scanned {
		if raw, ok := value.([]byte); ok {
			row[column] = string(raw)
			continue
		}

		row[column] = value
	}

	return row
}
