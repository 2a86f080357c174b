package records

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/yriy-kuskov/cakereact-core/records/validation"
)

const (
	defaultPrimaryKey   = "id"
	defaultDisplayField = "name"
)

// Model is the repository for one table: it resolves relations, wraps rows into Entities, and drives the
// save and delete lifecycles against the adapter of its connection.
//
// A Model is safe for concurrent use. Its configuration is read-only after NewModel returns.
type Model struct {
	registry       *Registry
	table          string
	primaryKey     string
	displayField   string
	connectionName string
	relations      Relations
	fields         *FieldRegistry

	configureValidation func(v *validation.Validator)
	validatorOnce       sync.Once
	validator           *validation.Validator

	beforeSave   BeforeSaveHook
	beforeDelete BeforeDeleteHook

	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewModel creates a Model for table, bound to registry.
// The connection is looked up on every call, so connections may be added after the Model is declared.
func NewModel(registry *Registry, table string, options ...Option) (*Model, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}

	if table == "" {
		return nil, ErrEmptyTableName
	}

	m := &Model{
		registry:       registry,
		table:          table,
		primaryKey:     defaultPrimaryKey,
		displayField:   defaultDisplayField,
		connectionName: DefaultConnection,
		relations: Relations{
			BelongsTo:     make(map[string]Relation),
			HasMany:       make(map[string]Relation),
			BelongsToMany: make(map[string]Relation),
		},
	}

	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Table returns the table name.
func (m *Model) Table() string {
	return m.table
}

// PrimaryKey returns the primary key column.
func (m *Model) PrimaryKey() string {
	return m.primaryKey
}

// DisplayField returns the column used to label rows.
func (m *Model) DisplayField() string {
	return m.displayField
}

// ConnectionName returns the name of the Registry connection the Model uses.
func (m *Model) ConnectionName() string {
	return m.connectionName
}

// Registry returns the Registry the Model is bound to.
func (m *Model) Registry() *Registry {
	return m.registry
}

// Events returns the EventBus of the Model's Registry.
func (m *Model) Events() *EventBus {
	return m.registry.Events()
}

// Relations returns a copy of the declared relations, grouped by kind.
func (m *Model) Relations() Relations {
	return Relations{
		BelongsTo:     maps.Clone(m.relations.BelongsTo),
		HasMany:       maps.Clone(m.relations.HasMany),
		BelongsToMany: maps.Clone(m.relations.BelongsToMany),
	}
}

// Validator returns the Model's Validator, building it on first use.
func (m *Model) Validator() *validation.Validator {
	m.validatorOnce.Do(func() {
		m.validator = validation.New()
		if m.configureValidation != nil {
			m.configureValidation(m.validator)
		}
	})

	return m.validator
}

// Validate runs the Model's rules against data. It returns nil failures when data is valid.
func (m *Model) Validate(ctx context.Context, data Record) (validation.Errors, error) {
	return m.Validator().Validate(ctx, data)
}

// NewEntity wraps data in a new Entity bound to the Model.
func (m *Model) NewEntity(data Record) *Entity {
	return NewEntity(data, WithFields(m.fields), withModel(m))
}

func (m *Model) wrap(row Record) *Entity {
	return NewEntity(row, WithFields(m.fields), withModel(m), AsPersisted())
}

// ResolveRelations turns the requested aliases into descriptors with concrete tables and key columns.
//
// A nil contain selects every declared relation, ordered by kind and then alias.
// An empty contain selects none. Otherwise the order of contain is kept and duplicates are dropped.
func (m *Model) ResolveRelations(contain []string) ([]RelationDescriptor, error) {
	aliases := contain
	if contain == nil {
		aliases = m.relations.aliases()
	}

	descriptors := make([]RelationDescriptor, 0, len(aliases))
	seen := make(map[string]struct{}, len(aliases))

	for _, alias := range aliases {
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}

		rel, kind, ok := m.relations.lookup(alias)
		if !ok {
			return nil, fmt.Errorf("%w: %q on %s", ErrUnknownRelation, alias, m.table)
		}

		descriptors = append(descriptors, rel.resolve(alias, kind, m.table, m.primaryKey))
	}

	return descriptors, nil
}

// Find returns the rows matching query as persisted Entities, with the requested relations attached.
func (m *Model) Find(ctx context.Context, query QueryOptions) (entities []*Entity, err error) {
	ctx, span := m.startOperation(ctx, operationFind)
	start := time.Now()
	defer func() {
		m.finishOperation(ctx, span, operationFind, start, statusOf(err, false), err)
	}()

	adapter, err := m.registry.Adapter(m.connectionName)
	if err != nil {
		return nil, err
	}

	relations, err := m.ResolveRelations(query.Contain)
	if err != nil {
		return nil, err
	}

	rows, err := adapter.Find(ctx, m.table, query, relations)
	if err != nil {
		return nil, err
	}

	entities = make([]*Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, m.wrap(normalizeRow(row, relations)))
	}

	return entities, nil
}

// First is Find limited to one row. It returns nil without an error when nothing matches.
func (m *Model) First(ctx context.Context, query QueryOptions) (*Entity, error) {
	query.Limit = 1

	entities, err := m.Find(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(entities) == 0 {
		return nil, nil //nolint:nilnil
	}

	return entities[0], nil
}

// FindByID returns the row whose primary key equals id, or nil without an error when there is none.
// Only query.Contain is used.
func (m *Model) FindByID(ctx context.Context, id any, query QueryOptions) (entity *Entity, err error) {
	ctx, span := m.startOperation(ctx, operationFindByID)
	start := time.Now()
	defer func() {
		m.finishOperation(ctx, span, operationFindByID, start, statusOf(err, false), err)
	}()

	adapter, err := m.registry.Adapter(m.connectionName)
	if err != nil {
		return nil, err
	}

	relations, err := m.ResolveRelations(query.Contain)
	if err != nil {
		return nil, err
	}

	row, err := adapter.FindByID(ctx, m.table, id, m.primaryKey, relations)
	if err != nil {
		return nil, err
	}

	if row == nil {
		return nil, nil //nolint:nilnil
	}

	return m.wrap(normalizeRow(row, relations)), nil
}

// Save persists the Entity: create when it is new, update keyed by its primary key otherwise.
//
// Validation failures return ErrValidationFailed joined with validation.Errors, and no adapter call is made.
// A model-local hook returning false or a listener returning Abort cancels the save: Save returns
// false and a nil error, and no after event is emitted.
// On success the returned row is merged into the Entity, the Entity is cleaned, and the after event is
// emitted. If an after listener fails, the row is persisted and Save returns true with the error.
func (m *Model) Save(ctx context.Context, entity *Entity) (saved bool, err error) {
	if entity == nil {
		return false, ErrNilEntity
	}

	cancelled := false
	ctx, span := m.startOperation(ctx, operationSave)
	start := time.Now()
	defer func() {
		m.finishOperation(ctx, span, operationSave, start, statusOf(err, cancelled), err)
	}()

	adapter, err := m.registry.Adapter(m.connectionName)
	if err != nil {
		return false, err
	}

	data := entity.Serialize()

	failures, err := m.Validate(ctx, data)
	if err != nil {
		return false, err
	}

	if failures != nil {
		return false, errors.Join(ErrValidationFailed, failures)
	}

	isNew := entity.IsNew()
	id := data[m.primaryKey]
	if !isNew && isBlank(id) {
		return false, ErrMissingPrimaryKey
	}

	beforeName, afterName := EventBeforeUpdate, EventAfterUpdate
	if isNew {
		beforeName, afterName = EventBeforeSave, EventAfterSave
	}

	before := NewLifecycleEvent(beforeName, m, data.Clone(), true)
	before.Entity = entity
	if !isNew {
		before.ID = id
	}

	proceed, err := m.runBeforeSave(ctx, before)
	if err != nil || !proceed {
		cancelled = err == nil
		return false, err
	}

	payload := m.persistable(before.Payload)

	var row Record
	if isNew {
		row, err = adapter.Create(ctx, m.table, payload)
	} else {
		if isBlank(payload[m.primaryKey]) {
			payload[m.primaryKey] = id
		}
		row, err = adapter.Update(ctx, m.table, payload, m.primaryKey)
	}

	if err != nil {
		return false, err
	}

	if row == nil {
		row = payload
	}

	entity.applyPersisted(row)
	entity.Clean()

	after := NewLifecycleEvent(afterName, m, entity.Serialize(), false)
	after.Entity = entity
	after.ID = entity.Get(m.primaryKey)

	if _, err = m.registry.Events().Emit(ctx, after); err != nil {
		return true, err
	}

	return true, nil
}

// SaveRecord wraps data in an Entity and saves it. The Entity is new when data has no primary key value.
func (m *Model) SaveRecord(ctx context.Context, data Record) (*Entity, bool, error) {
	options := []EntityOption{WithFields(m.fields), withModel(m)}
	if !isBlank(data[m.primaryKey]) {
		options = append(options, AsPersisted())
	}

	entity := NewEntity(data, options...)

	saved, err := m.Save(ctx, entity)

	return entity, saved, err
}

// Delete removes the row whose primary key equals id and reports whether it was removed.
//
// The model-local hook runs first, then the cancellable beforeDelete event. Cancellation returns false
// and a nil error. The afterDelete event is emitted only when the adapter removed a row.
func (m *Model) Delete(ctx context.Context, id any) (deleted bool, err error) {
	cancelled := false
	ctx, span := m.startOperation(ctx, operationDelete)
	start := time.Now()
	defer func() {
		m.finishOperation(ctx, span, operationDelete, start, statusOf(err, cancelled), err)
	}()

	adapter, err := m.registry.Adapter(m.connectionName)
	if err != nil {
		return false, err
	}

	if m.beforeDelete != nil {
		proceed, hookErr := m.beforeDelete(ctx, id)
		if hookErr != nil {
			return false, errors.Join(ErrHookFailed, hookErr)
		}

		if !proceed {
			cancelled = true
			return false, nil
		}
	}

	before := NewLifecycleEvent(EventBeforeDelete, m, nil, true)
	before.ID = id

	outcome, err := m.registry.Events().Emit(ctx, before)
	if err != nil {
		return false, err
	}

	if outcome.Aborted() {
		cancelled = true
		return false, nil
	}

	deleted, err = adapter.Delete(ctx, m.table, id, m.primaryKey)
	if err != nil {
		return false, err
	}

	if !deleted {
		return false, nil
	}

	after := NewLifecycleEvent(EventAfterDelete, m, nil, false)
	after.ID = id

	if _, err = m.registry.Events().Emit(ctx, after); err != nil {
		return true, err
	}

	return true, nil
}

// runBeforeSave runs the model-local hook and then the cancellable before event.
func (m *Model) runBeforeSave(ctx context.Context, event *LifecycleEvent) (bool, error) {
	if m.beforeSave != nil {
		proceed, err := m.beforeSave(ctx, event)
		if err != nil {
			return false, errors.Join(ErrHookFailed, err)
		}

		if !proceed {
			return false, nil
		}
	}

	outcome, err := m.registry.Events().Emit(ctx, event)
	if err != nil {
		return false, err
	}

	return !outcome.Aborted(), nil
}

// persistable strips nested relation data and pivot metadata from data before it is sent to the adapter.
func (m *Model) persistable(data Record) Record {
	out := data.Clone()
	delete(out, JoinMetadataKey)

	for _, alias := range m.relations.aliases() {
		delete(out, alias)
	}

	return out
}

// Fields returns the FieldRegistry attached to the Model, or nil.
func (m *Model) Fields() *FieldRegistry {
	return m.fields
}

// HasRelation reports whether alias is declared on the Model.
func (m *Model) HasRelation(alias string) bool {
	_, _, ok := m.relations.lookup(alias)
	return ok
}

// RelationAliases returns the declared aliases ordered by kind and then alias.
func (m *Model) RelationAliases() []string {
	return m.relations.aliases()
}

func statusOf(err error, cancelled bool) string {
	switch {
	case err != nil:
		return StatusError
	case cancelled:
		return StatusCancelled
	default:
		return StatusSuccess
	}
}
