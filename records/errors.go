package records

import "errors"

var (
	// ErrNilRegistry is returned when a Model is constructed without a Registry.
	ErrNilRegistry = errors.New("registry must not be nil")

	// ErrEmptyTableName is returned when a Model is constructed with an empty table name.
	ErrEmptyTableName = errors.New("empty table name supplied")

	// ErrEmptyPrimaryKey is returned when WithPrimaryKey receives an empty column name.
	ErrEmptyPrimaryKey = errors.New("empty primary key supplied")

	// ErrEmptyConnectionName is returned when a connection is registered or selected without a name.
	ErrEmptyConnectionName = errors.New("empty connection name supplied")

	// ErrEmptyRelationAlias is returned when a relation is declared without an alias.
	ErrEmptyRelationAlias = errors.New("empty relation alias supplied")

	// ErrDuplicateRelationAlias is returned when the same alias is declared twice on one Model.
	ErrDuplicateRelationAlias = errors.New("relation alias declared more than once")

	// ErrEmptyPluginName is returned when a plugin is registered without a name.
	ErrEmptyPluginName = errors.New("empty plugin name supplied")

	// ErrNilPlugin is returned when a nil Plugin is registered.
	ErrNilPlugin = errors.New("plugin must not be nil")

	// ErrPluginInitFailed is returned, joined with the cause, when Plugin.Initialize fails.
	ErrPluginInitFailed = errors.New("plugin initialization failed")

	// ErrNilAdapter is returned when a nil Adapter is registered.
	ErrNilAdapter = errors.New("adapter must not be nil")

	// ErrUnknownConnection is returned when a Model refers to a connection that was never registered.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrUnknownRelation is returned when contain names an alias the Model does not declare.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrNilEntity is returned when Save receives a nil Entity.
	ErrNilEntity = errors.New("entity must not be nil")

	// ErrMissingPrimaryKey is returned when an update is attempted without a primary key value.
	ErrMissingPrimaryKey = errors.New("primary key value missing for update")

	// ErrValidationFailed is returned, joined with validation.Errors, when data does not pass validation.
	// No adapter call has been made when this error is returned.
	ErrValidationFailed = errors.New("validation failed")

	// ErrListenerFailed is returned, joined with the cause, when an event listener returns an error.
	ErrListenerFailed = errors.New("event listener failed")

	// ErrHookFailed is returned, joined with the cause, when a model-local hook returns an error.
	ErrHookFailed = errors.New("model hook failed")
)
