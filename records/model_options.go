package records

import (
	"context"

	"github.com/yriy-kuskov/cakereact-core/records/validation"
)

// Option defines a functional option for configuring Model.
type Option func(*Model) error

// BeforeSaveHook is a model-local hook run before the beforeSave/beforeUpdate event.
// Returning false cancels the save.
type BeforeSaveHook func(ctx context.Context, event *LifecycleEvent) (bool, error)

// BeforeDeleteHook is a model-local hook run before the beforeDelete event.
// Returning false cancels the delete.
type BeforeDeleteHook func(ctx context.Context, id any) (bool, error)

// WithPrimaryKey sets the primary key column (default "id").
func WithPrimaryKey(column string) Option {
	return func(m *Model) error {
		if column == "" {
			return ErrEmptyPrimaryKey
		}

		m.primaryKey = column

		return nil
	}
}

// WithDisplayField sets the column used to label rows (default "name").
func WithDisplayField(column string) Option {
	return func(m *Model) error {
		m.displayField = column
		return nil
	}
}

// WithConnection selects the Registry connection the Model talks to (default "default").
func WithConnection(name string) Option {
	return func(m *Model) error {
		if name == "" {
			return ErrEmptyConnectionName
		}

		m.connectionName = name

		return nil
	}
}

// WithBelongsTo declares a belongsTo relation under alias.
func WithBelongsTo(alias string, rel Relation) Option {
	return withRelation(BelongsTo, alias, rel)
}

// WithHasMany declares a hasMany relation under alias.
func WithHasMany(alias string, rel Relation) Option {
	return withRelation(HasMany, alias, rel)
}

// WithBelongsToMany declares a belongsToMany relation under alias.
func WithBelongsToMany(alias string, rel Relation) Option {
	return withRelation(BelongsToMany, alias, rel)
}

func withRelation(kind RelationKind, alias string, rel Relation) Option {
	return func(m *Model) error {
		if alias == "" {
			return ErrEmptyRelationAlias
		}

		if _, _, exists := m.relations.lookup(alias); exists {
			return ErrDuplicateRelationAlias
		}

		switch kind {
		case BelongsTo:
			m.relations.BelongsTo[alias] = rel
		case HasMany:
			m.relations.HasMany[alias] = rel
		case BelongsToMany:
			m.relations.BelongsToMany[alias] = rel
		}

		return nil
	}
}

// WithFieldRegistry attaches computed fields and transforms to every Entity the Model creates.
func WithFieldRegistry(registry *FieldRegistry) Option {
	return func(m *Model) error {
		m.fields = registry
		return nil
	}
}

// WithValidation sets the function that adds the Model's rules.
// It runs once, on first use of the Validator.
func WithValidation(configure func(v *validation.Validator)) Option {
	return func(m *Model) error {
		m.configureValidation = configure
		return nil
	}
}

// WithBeforeSaveHook sets the model-local hook run before the beforeSave/beforeUpdate event.
func WithBeforeSaveHook(hook BeforeSaveHook) Option {
	return func(m *Model) error {
		m.beforeSave = hook
		return nil
	}
}

// WithBeforeDeleteHook sets the model-local hook run before the beforeDelete event.
func WithBeforeDeleteHook(hook BeforeDeleteHook) Option {
	return func(m *Model) error {
		m.beforeDelete = hook
		return nil
	}
}

// WithLogger sets the logger for the Model.
//
// Info level: cancelled saves and deletes
// Error level: failed operations.
func WithLogger(logger Logger) Option {
	return func(m *Model) error {
		m.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(m *Model) error {
		m.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Model.
func WithMetrics(collector MetricsCollector) Option {
	return func(m *Model) error {
		m.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Model.
func WithTracing(collector TracingCollector) Option {
	return func(m *Model) error {
		m.tracingCollector = collector
		return nil
	}
}
