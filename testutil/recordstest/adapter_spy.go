package recordstest

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// AdapterCall is one recorded call on an AdapterSpy.
type AdapterCall struct {
	Method    string
	Table     string
	ID        any
	Data      records.Record
	Query     records.QueryOptions
	Relations []records.RelationDescriptor
}

// AdapterSpy is an in-memory records.Adapter that captures every call for testing.
//
// Rows are stored as given, so tests can seed rows that already carry nested relation data in the
// adapter shape. Create assigns increasing int64 ids when the primary key is missing. Find applies
// equality, IN and IS NULL conditions, the order and the limit; relations are recorded, not loaded.
type AdapterSpy struct {
	mu     sync.Mutex
	tables map[string][]records.Record
	nextID int64
	calls  []AdapterCall
	errs   map[string]error
}

var _ records.Adapter = (*AdapterSpy)(nil)

// NewAdapterSpy creates an empty AdapterSpy.
func NewAdapterSpy() *AdapterSpy {
	return &AdapterSpy{
		tables: make(map[string][]records.Record),
		errs:   make(map[string]error),
	}
}

// Seed appends rows to table.
func (s *AdapterSpy) Seed(table string, rows ...records.Record) *AdapterSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.tables[table] = append(s.tables[table], row.Clone())
	}

	return s
}

// FailWith makes every following call of method ("Find", "FindByID", "Create", "Update", "Delete") return err.
func (s *AdapterSpy) FailWith(method string, err error) *AdapterSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errs[method] = err

	return s
}

// Rows returns a copy of the rows stored in table.
func (s *AdapterSpy) Rows(table string) []records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]records.Record, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		rows = append(rows, row.Clone())
	}

	return rows
}

// Calls returns the recorded calls of method, or all calls when method is empty.
func (s *AdapterSpy) Calls(method string) []AdapterCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]AdapterCall, 0, len(s.calls))
	for _, call := range s.calls {
		if method == "" || call.Method == method {
			calls = append(calls, call)
		}
	}

	return calls
}

// CallCount returns the number of recorded calls of method.
func (s *AdapterSpy) CallCount(method string) int {
	return len(s.Calls(method))
}

// Find implements records.Adapter.
func (s *AdapterSpy) Find(
	_ context.Context,
	table string,
	query records.QueryOptions,
	relations []records.RelationDescriptor,
) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(AdapterCall{Method: "Find", Table: table, Query: query, Relations: relations})
	if err := s.errs["Find"]; err != nil {
		return nil, err
	}

	found := make([]records.Record, 0)
	for _, row := range s.tables[table] {
		if matches(row, query.Conditions) {
			found = append(found, row.Clone())
		}
	}

	if query.Order != nil && query.Order.Column != "" {
		column := query.Order.Column
		slices.SortStableFunc(found, func(a, b records.Record) int {
			c := cmp.Compare(fmt.Sprint(a[column]), fmt.Sprint(b[column]))
			if query.Order.Direction == records.Desc {
				return -c
			}

			return c
		})
	}

	if query.Limit > 0 && len(found) > query.Limit {
		found = found[:query.Limit]
	}

	return found, nil
}

// FindByID implements records.Adapter.
func (s *AdapterSpy) FindByID(
	_ context.Context,
	table string,
	id any,
	primaryKey string,
	relations []records.RelationDescriptor,
) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(AdapterCall{Method: "FindByID", Table: table, ID: id, Relations: relations})
	if err := s.errs["FindByID"]; err != nil {
		return nil, err
	}

	if i := s.indexOf(table, primaryKey, id); i >= 0 {
		return s.tables[table][i].Clone(), nil
	}

	return nil, nil //nolint:nilnil
}

// Create implements records.Adapter. The primary key column is always "id".
func (s *AdapterSpy) Create(_ context.Context, table string, data records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(AdapterCall{Method: "Create", Table: table, Data: data.Clone()})
	if err := s.errs["Create"]; err != nil {
		return nil, err
	}

	row := data.Clone()
	if row["id"] == nil {
		s.nextID++
		row["id"] = s.nextID
	}

	s.tables[table] = append(s.tables[table], row)

	return row.Clone(), nil
}

// Update implements records.Adapter.
func (s *AdapterSpy) Update(
	_ context.Context,
	table string,
	data records.Record,
	primaryKey string,
) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(AdapterCall{Method: "Update", Table: table, ID: data[primaryKey], Data: data.Clone()})
	if err := s.errs["Update"]; err != nil {
		return nil, err
	}

	i := s.indexOf(table, primaryKey, data[primaryKey])
	if i < 0 {
		return nil, fmt.Errorf("no row in %s with %s %v", table, primaryKey, data[primaryKey])
	}

	row := s.tables[table][i]
	for field, value := range data {
		row[field] = value
	}

	return row.Clone(), nil
}

// Delete implements records.Adapter.
func (s *AdapterSpy) Delete(_ context.Context, table string, id any, primaryKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(AdapterCall{Method: "Delete", Table: table, ID: id})
	if err := s.errs["Delete"]; err != nil {
		return false, err
	}

	i := s.indexOf(table, primaryKey, id)
	if i < 0 {
		return false, nil
	}

	s.tables[table] = slices.Delete(s.tables[table], i, i+1)

	return true, nil
}

func (s *AdapterSpy) record(call AdapterCall) {
	s.calls = append(s.calls, call)
}

func (s *AdapterSpy) indexOf(table, primaryKey string, id any) int {
	return slices.IndexFunc(s.tables[table], func(row records.Record) bool {
		return fmt.Sprint(row[primaryKey]) == fmt.Sprint(id)
	})
}

func matches(row records.Record, conditions records.Conditions) bool {
	for column, want := range conditions {
		got := row[column]

		switch {
		case want == nil:
			if got != nil {
				return false
			}

		case reflect.TypeOf(want).Kind() == reflect.Slice:
			list := reflect.ValueOf(want)
			found := false
			for i := range list.Len() {
				if fmt.Sprint(list.Index(i).Interface()) == fmt.Sprint(got) {
					found = true
					break
				}
			}

			if !found {
				return false
			}

		default:
			if got == nil || fmt.Sprint(got) != fmt.Sprint(want) {
				return false
			}
		}
	}

	return true
}
