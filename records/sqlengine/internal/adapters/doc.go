// Package adapters provide the database handle implementations behind sqlengine.Engine.
//
// pgxpool.Pool (optionally with a read replica), sql.DB and sqlx.DB are wrapped behind one DBAdapter
// interface. Rows are returned as column-name maps so the engine never needs to know the table layout.
package adapters
