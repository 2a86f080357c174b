// Package records provides active-record style data access on top of pluggable persistence adapters.
//
// This package defines the entity state model, the Model (repository) that resolves relations and
// drives the save/delete lifecycles, the Adapter contract implemented by concrete backends, and the
// EventBus through which lifecycle hooks observe and rewrite data before it is persisted.
//
// Key types:
//   - Entity: one record with baseline/dirty tracking, computed fields and value transforms
//   - Model: table metadata, relation resolution, find/save/delete orchestration
//   - Adapter: the capability set a backend implements (see package sqlengine)
//   - EventBus: named lifecycle events with strictly sequential listener dispatch
//   - Registry: named connections and the event bus, passed into every Model
//
// Common usage pattern:
//
//	registry := records.NewRegistry()
//	_ = registry.AddConnection(records.DefaultConnection, engine)
//
//	products, _ := records.NewModel(
//		registry,
//		"products",
//		records.WithBelongsTo("category", records.Relation{Table: "categories"}),
//		records.WithValidation(func(v *validation.Validator) {
//			v.Add("name", validation.RuleNotEmpty, validation.WithMessage("name is required"))
//		}),
//	)
//
//	rows, err := products.Find(ctx, records.QueryOptions{
//		Conditions: records.Conditions{"price": 100},
//		Limit:      1,
//	})
//
//	product := products.NewEntity(records.Record{"name": "Cake", "price": 100})
//	saved, err := products.Save(ctx, product)
package records
