package records

import (
	"reflect"
	"slices"
)

// Record is the unit of data moved between an Adapter and an Entity: column name to value.
type Record map[string]any

// Clone returns a shallow copy of the Record. A nil Record clones to an empty one.
func (r Record) Clone() Record {
	clone := make(Record, len(r))
	for key, val := range r {
		clone[key] = val
	}

	return clone
}

// Has reports whether the field is present, even when its value is nil.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}

// asRecord converts the nested shapes adapters produce (Record or plain map) into a Record.
func asRecord(v any) (Record, bool) {
	switch typed := v.(type) {
	case Record:
		return typed, typed != nil
	case map[string]any:
		return typed, typed != nil
	default:
		return nil, false
	}
}

// asRecords converts a nested list of rows into []Record, skipping elements that are not rows.
func asRecords(v any) []Record {
	switch typed := v.(type) {
	case []Record:
		return typed
	case []map[string]any:
		out := make([]Record, 0, len(typed))
		for _, row := range typed {
			out = append(out, row)
		}
		return out
	case []any:
		out := make([]Record, 0, len(typed))
		for _, item := range typed {
			if row, ok := asRecord(item); ok {
				out = append(out, row)
			}
		}
		return out
	default:
		return nil
	}
}

// isBlank reports whether a primary key value counts as absent.
func isBlank(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}
