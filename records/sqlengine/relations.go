package sqlengine

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// loadRelations attaches related rows to rows, one query per relation and two for belongsToMany.
//
// Nesting per kind:
//   - BelongsTo: the parent row (or nil) under the alias
//   - HasMany: the child rows under the alias, ordered by their primary key
//   - BelongsToMany: the pivot rows under the through table name, each carrying its target row under
//     the target table name. Pivot rows of polymorphic relations are limited to TypeColumn = OwnerTable.
func (e *Engine) loadRelations(ctx context.Context, rows []records.Record, relations []records.RelationDescriptor) error {
	if len(rows) == 0 {
		return nil
	}

	for _, rel := range relations {
		var err error

		switch rel.Kind {
		case records.BelongsTo:
			err = e.loadBelongsTo(ctx, rows, rel)
		case records.HasMany:
			err = e.loadHasMany(ctx, rows, rel)
		case records.BelongsToMany:
			err = e.loadBelongsToMany(ctx, rows, rel)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) loadBelongsTo(ctx context.Context, rows []records.Record, rel records.RelationDescriptor) error {
	parents, err := e.selectIn(ctx, rel.Table, rel.TargetPrimaryKey, distinctValues(rows, rel.ForeignKey), nil)
	if err != nil {
		return err
	}

	byKey := indexBy(parents, rel.TargetPrimaryKey)

	for _, row := range rows {
		if parent, ok := byKey[keyOf(row[rel.ForeignKey])]; ok && row[rel.ForeignKey] != nil {
			row[rel.Alias] = parent
		} else {
			row[rel.Alias] = nil
		}
	}

	return nil
}

func (e *Engine) loadHasMany(ctx context.Context, rows []records.Record, rel records.RelationDescriptor) error {
	order := goqu.I(rel.TargetPrimaryKey).Asc()

	children, err := e.selectIn(ctx, rel.Table, rel.ForeignKey, distinctValues(rows, rel.OwnerPrimaryKey), nil, order)
	if err != nil {
		return err
	}

	groups := groupBy(children, rel.ForeignKey)

	for _, row := range rows {
		group, ok := groups[keyOf(row[rel.OwnerPrimaryKey])]
		if !ok {
			group = []records.Record{}
		}
		row[rel.Alias] = group
	}

	return nil
}

func (e *Engine) loadBelongsToMany(ctx context.Context, rows []records.Record, rel records.RelationDescriptor) error {
	var filter []exp.Expression
	if rel.Polymorphic {
		filter = append(filter, goqu.C(rel.TypeColumn).Eq(rel.OwnerTable))
	}

	pivots, err := e.selectIn(ctx, rel.Through, rel.ForeignKey, distinctValues(rows, rel.OwnerPrimaryKey), filter)
	if err != nil {
		return err
	}

	targets, err := e.selectIn(ctx, rel.Table, rel.TargetPrimaryKey, distinctValues(pivots, rel.TargetForeignKey), nil)
	if err != nil {
		return err
	}

	byKey := indexBy(targets, rel.TargetPrimaryKey)
	for _, pivot := range pivots {
		if target, ok := byKey[keyOf(pivot[rel.TargetForeignKey])]; ok {
			pivot[rel.Table] = target
		}
	}

	groups := groupBy(pivots, rel.ForeignKey)

	for _, row := range rows {
		existing, _ := row[rel.Through].([]records.Record)

		merged := append(existing, groups[keyOf(row[rel.OwnerPrimaryKey])]...)
		if merged == nil {
			merged = []records.Record{}
		}
		row[rel.Through] = merged
	}

	return nil
}

// selectIn loads the rows of table whose column is one of values. No query runs when values is empty.
func (e *Engine) selectIn(
	ctx context.Context,
	table, column string,
	values []any,
	filter []exp.Expression,
	order ...exp.OrderedExpression,
) ([]records.Record, error) {
	if len(values) == 0 {
		return nil, nil
	}

	where := append([]exp.Expression{goqu.C(column).In(values)}, filter...)

	ds := e.dialect.From(table).Where(where...)
	if len(order) > 0 {
		ds = ds.Order(order...)
	}

	sqlQuery, _, err := ds.ToSQL()
	if err != nil {
		return nil, e.buildFailed(ctx, operationLoadRelation, err)
	}

	return e.queryRecords(ctx, operationLoadRelation, sqlQuery)
}

// distinctValues collects the non-nil values of column in first-seen order.
func distinctValues(rows []records.Record, column string) []any {
	seen := make(map[string]struct{}, len(rows))
	values := make([]any, 0, len(rows))

	for _, row := range rows {
		value := row[column]
		if value == nil {
			continue
		}

		key := keyOf(value)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		values = append(values, value)
	}

	return values
}

func indexBy(rows []records.Record, column string) map[string]records.Record {
	index := make(map[string]records.Record, len(rows))
	for _, row := range rows {
		index[keyOf(row[column])] = row
	}

	return index
}

func groupBy(rows []records.Record, column string) map[string][]records.Record {
	groups := make(map[string][]records.Record)
	for _, row := range rows {
		key := keyOf(row[column])
		groups[key] = append(groups[key], row)
	}

	return groups
}

// keyOf renders key column values comparably across drivers (int64 1 and "1" match).
func keyOf(v any) string {
	return fmt.Sprint(v)
}
