package database

import "context"

// Querier is the read side of a database connection. Diagnosis probes only
// ever need this subset.
type Querier interface {
	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Catalog exposes the engine's live schema metadata.
// Implementations issue one metadata query per call and never cache;
// wrap a Catalog in a cache at a higher layer if needed.
type Catalog interface {
	// ListTables returns all user-defined table names.
	ListTables(ctx context.Context) ([]string, error)

	// ForeignKeys returns the declared foreign keys of table, in the order
	// the engine reports them.
	ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)

	// Columns returns one entry per column of table, in declaration order.
	Columns(ctx context.Context, table string) ([]ColumnInfo, error)
}

// DB is the central contract for all database operations.
// All layers above this package talk only to this interface;
// they never import the sqlite, postgres or mysql packages directly.
type DB interface {
	Querier
	Catalog

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Exec executes a statement that does not return rows.
	Exec(ctx context.Context, sql string, args ...any) (Result, error)

	// Dialect reports the placeholder style the engine expects.
	Dialect() Dialect
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Result summarises an executed statement.
type Result struct {
	RowsAffected int64
	// LastInsertID is zero when the engine does not report one (Postgres).
	LastInsertID int64
}
