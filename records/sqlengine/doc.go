// Package sqlengine provides a SQL implementation of records.Adapter.
//
// Statements are built with goqu for the postgres or sqlite dialect and run through one of three
// database handles: pgxpool.Pool (optionally with a read replica), sql.DB or sqlx.DB.
//
// Key features:
//   - Equality, IN and IS NULL conditions, ordering and limits
//   - Eager loading of belongsTo, hasMany and (polymorphic) belongsToMany relations
//   - RETURNING * for inserts and updates, so generated columns reach the Entity
//   - Replica reads for contexts marked with records.WithEventualConsistency
//   - Optional logging, metrics and tracing through the records observability interfaces
//
// Usage examples:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	engine, _ := sqlengine.NewEngineFromPGXPool(pool, sqlengine.WithLogger(slog.Default()))
//
//	registry := records.NewRegistry()
//	_ = registry.AddConnection(records.DefaultConnection, engine)
//
//	// From configuration; the Engine owns the connection
//	engine, _ := sqlengine.Open(ctx, cfg.Connections["default"])
//	defer engine.Close()
package sqlengine
