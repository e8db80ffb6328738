package database

import (
	"context"

	"github.com/koustreak/datforge/internal/model"
)

// DB is the central contract for all database operations.
// Layers above this package talk only to this interface and never import
// the postgres, mysql or sqlite packages directly.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Dialect describes how statements for this engine are spelled.
	Dialect() Dialect

	// InspectSchema returns the tables, keys and foreign keys of the
	// configured schema. This is an expensive operation.
	InspectSchema(ctx context.Context) (*SchemaInfo, error)
}

// Dialect is the engine-specific part of statement text.
type Dialect interface {
	Name() Driver

	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string

	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string

	// ColumnType is the column type declared for an attribute type.
	ColumnType(t model.AttributeType) string
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}
