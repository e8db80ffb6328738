// Package sqlite implements database.DB over a SQLite file with
// mattn/go-sqlite3. The DSN is a file path or a "file:" URI; ":memory:"
// gives a throwaway database.
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver

	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/errs"
)

// Driver is a SQLite implementation of database.DB. SQLite has a single
// writer, so the pool holds one connection; this also keeps an in-memory
// database alive and shared for the life of the Driver.
type Driver struct {
	db *sql.DB
}

// New opens the database named by cfg.DSN and pings it.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	if cfg.DSN == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sqlite needs a file path")
	}
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	d := &Driver{db: db}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &sqliteRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &sqliteRow{row: d.db.QueryRowContext(ctx, query, args...)}
}

func (d *Driver) Dialect() database.Dialect { return Dialect{} }

// InspectSchema introspects the main database; SQLite has no schemas.
func (d *Driver) InspectSchema(ctx context.Context) (*database.SchemaInfo, error) {
	return database.InspectSchema(ctx, d, "main")
}

type sqliteRows struct {
	rows *sql.Rows
}

func (r *sqliteRows) Next() bool             { return r.rows.Next() }
func (r *sqliteRows) Scan(dest ...any) error { return mapError(r.rows.Scan(dest...), "scan failed") }
func (r *sqliteRows) Close()                 { _ = r.rows.Close() }
func (r *sqliteRows) Err() error             { return mapError(r.rows.Err(), "row iteration failed") }

type sqliteRow struct {
	row *sql.Row
}

func (r *sqliteRow) Scan(dest ...any) error { return mapError(r.row.Scan(dest...), "scan failed") }
