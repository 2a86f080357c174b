package records

import (
	"math"
	"math/big"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

// Entity is the in-memory representation of one record with baseline/dirty tracking.
//
// The baseline holds the last known persisted values, the dirty overlay holds modified-but-unsaved
// values. An Entity has no internal lock: it must not be mutated by two in-flight saves at once.
type Entity struct {
	baseline Record
	dirty    Record
	isNew    bool
	fields   *FieldRegistry
	model    *Model
}

// EntityOption configures an Entity at construction time.
type EntityOption func(*Entity)

// AsPersisted marks the Entity as backed by an existing row.
func AsPersisted() EntityOption {
	return func(e *Entity) {
		e.isNew = false
	}
}

// WithFields attaches a FieldRegistry with computed fields and transforms.
func WithFields(registry *FieldRegistry) EntityOption {
	return func(e *Entity) {
		e.fields = registry
	}
}

func withModel(model *Model) EntityOption {
	return func(e *Entity) {
		e.model = model
	}
}

// NewEntity wraps data in a new Entity. Unless AsPersisted is given the Entity is new.
// The data is copied; later changes to it do not affect the Entity.
func NewEntity(data Record, options ...EntityOption) *Entity {
	e := &Entity{
		baseline: data.Clone(),
		dirty:    make(Record),
		isNew:    true,
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// Get returns the effective value of a field: a computed field's resolved value,
// else the dirty value, else the baseline value. Absent fields yield nil.
func (e *Entity) Get(field string) any {
	val, _ := e.Lookup(field)
	return val
}

// Lookup is like Get but also reports whether the field is present.
// Computed fields are always present.
func (e *Entity) Lookup(field string) (any, bool) {
	if resolve, ok := e.fields.computedField(field); ok {
		return resolve(e, e.baseline[field]), true
	}

	if val, ok := e.dirty[field]; ok {
		return val, true
	}

	val, ok := e.baseline[field]

	return val, ok
}

// Set applies the field's registered transform and stores the result in the dirty overlay
// when it differs from the current effective value. Numbers compare by value across Go types,
// so int 100 equals a scanned int64 100.
func (e *Entity) Set(field string, value any) *Entity {
	if transform, ok := e.fields.transform(field); ok {
		value = transform(value)
	}

	current, present := e.dirty[field]
	if !present {
		current, present = e.baseline[field]
	}

	if present && sameValue(current, value) {
		return e
	}

	e.dirty[field] = value

	return e
}

// IsDirty reports whether any field is dirty, or, when fields are given, whether any of them is.
func (e *Entity) IsDirty(fields ...string) bool {
	if len(fields) == 0 {
		return len(e.dirty) > 0
	}

	for _, field := range fields {
		if _, ok := e.dirty[field]; ok {
			return true
		}
	}

	return false
}

// DirtyFields returns the names of the dirty fields in sorted order.
func (e *Entity) DirtyFields() []string {
	return e.dirty.Keys()
}

// IsNew reports whether the Entity has no backing row yet.
func (e *Entity) IsNew() bool {
	return e.isNew
}

// Clean merges the dirty overlay into the baseline, empties it, and marks the Entity persisted.
func (e *Entity) Clean() {
	for field, val := range e.dirty {
		e.baseline[field] = val
	}

	clear(e.dirty)
	e.isNew = false
}

// Model returns the Model that produced the Entity, or nil for free-standing entities.
func (e *Entity) Model() *Model {
	return e.model
}

// SerializeOption configures Entity.Serialize.
type SerializeOption func(*serializeConfig)

type serializeConfig struct {
	computed    []string
	allComputed bool
}

// WithComputed includes the named computed fields in the serialized output.
// Without names, all registered computed fields are included.
func WithComputed(names ...string) SerializeOption {
	return func(c *serializeConfig) {
		if len(names) == 0 {
			c.allComputed = true
			return
		}

		c.computed = append(c.computed, names...)
	}
}

// Serialize returns the baseline merged with the dirty overlay (dirty wins).
// Computed fields are excluded unless requested with WithComputed.
func (e *Entity) Serialize(options ...SerializeOption) Record {
	cfg := serializeConfig{}
	for _, option := range options {
		option(&cfg)
	}

	out := e.baseline.Clone()
	for field, val := range e.dirty {
		out[field] = val
	}

	computed := cfg.computed
	if cfg.allComputed {
		computed = e.fields.ComputedFields()
	}

	for _, name := range computed {
		if resolve, ok := e.fields.computedField(name); ok {
			out[name] = resolve(e, e.baseline[name])
		}
	}

	return out
}

// MarshalJSON encodes the serialized Entity without computed fields.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(map[string]any(e.Serialize()))
}

// applyPersisted folds the dirty overlay and the row returned by the backend into the baseline.
func (e *Entity) applyPersisted(row Record) {
	for field, val := range e.dirty {
		e.baseline[field] = val
	}

	for field, val := range row {
		e.baseline[field] = val
	}

	clear(e.dirty)
}

func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}

	x, ok := numberOf(a)
	if !ok {
		return false
	}

	y, ok := numberOf(b)
	if !ok {
		return false
	}

	return x.Cmp(y) == 0
}

// numberOf converts integer and finite float kinds to an exact big.Float.
func numberOf(v any) (*big.Float, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return new(big.Float).SetInt64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Float).SetUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return new(big.Float).SetFloat64(f), true
	default:
		return nil, false
	}
}
