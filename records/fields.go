package records

// ComputedFieldFunc resolves a virtual field. It receives the entity and the baseline raw value
// stored under the field name (nil when the field is purely virtual).
type ComputedFieldFunc func(e *Entity, raw any) any

// TransformFunc rewrites a value before Entity.Set compares and stores it.
type TransformFunc func(value any) any

// FieldRegistry is the static table of computed fields and value transforms for one kind of entity.
// It must be fully populated before entities using it are created; it is read without locking.
type FieldRegistry struct {
	computed   map[string]ComputedFieldFunc
	transforms map[string]TransformFunc
}

// NewFieldRegistry creates an empty FieldRegistry.
func NewFieldRegistry() *FieldRegistry {
	return &FieldRegistry{
		computed:   make(map[string]ComputedFieldFunc),
		transforms: make(map[string]TransformFunc),
	}
}

// RegisterComputedField registers a resolver that Entity.Get uses instead of the stored value.
func (r *FieldRegistry) RegisterComputedField(name string, fn ComputedFieldFunc) *FieldRegistry {
	r.computed[name] = fn
	return r
}

// RegisterTransform registers a transform that Entity.Set applies before storing a value.
func (r *FieldRegistry) RegisterTransform(name string, fn TransformFunc) *FieldRegistry {
	r.transforms[name] = fn
	return r
}

// ComputedFields returns the names of all registered computed fields in sorted order.
func (r *FieldRegistry) ComputedFields() []string {
	if r == nil {
		return nil
	}

	names := make(Record, len(r.computed))
	for name := range r.computed {
		names[name] = nil
	}

	return names.Keys()
}

func (r *FieldRegistry) computedField(name string) (ComputedFieldFunc, bool) {
	if r == nil {
		return nil, false
	}

	fn, ok := r.computed[name]

	return fn, ok
}

func (r *FieldRegistry) transform(name string) (TransformFunc, bool) {
	if r == nil {
		return nil, false
	}

	fn, ok := r.transforms[name]

	return fn, ok
}
