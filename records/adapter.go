package records

import "context"

// Adapter translates abstract queries and relation descriptors into calls against one concrete backend.
// There is one Adapter per named connection.
//
// Every call is single-shot: no retries and no error suppression. Backend errors are returned to the
// Model, which returns them to its caller unchanged.
//
// Nested relation data is returned in the backend's shape:
//   - BelongsTo: a Record (or nil) under the relation alias
//   - HasMany: a []Record under the relation alias
//   - BelongsToMany: a []Record of pivot rows under the Through table name, each pivot row carrying
//     its target row under the target Table name. The Model flattens this shape.
type Adapter interface {
	// Find returns the rows of table matching query, in order, with the given relations attached.
	Find(ctx context.Context, table string, query QueryOptions, relations []RelationDescriptor) ([]Record, error)

	// FindByID returns the single row whose primaryKey equals id, or nil without an error when there is none.
	FindByID(ctx context.Context, table string, id any, primaryKey string, relations []RelationDescriptor) (Record, error)

	// Create inserts data and returns the created row as the backend stored it.
	Create(ctx context.Context, table string, data Record) (Record, error)

	// Update writes data to the row identified by data[primaryKey] and returns the updated row.
	Update(ctx context.Context, table string, data Record, primaryKey string) (Record, error)

	// Delete removes the row whose primaryKey equals id and reports whether a row was removed.
	Delete(ctx context.Context, table string, id any, primaryKey string) (bool, error)
}
