package mysql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"

	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/errs"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db     *sql.DB
	schema string
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning. The schema
// introspected is cfg.Schema, or the database named in the DSN.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	mcfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	if cfg.ConnectTimeout > 0 {
		mcfg.Timeout = cfg.ConnectTimeout
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	schema := cfg.Schema
	if schema == "" {
		schema = mcfg.DBName
	}
	d := &Driver{db: db, schema: schema}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

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
	return &mysqlRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &mysqlRow{row: d.db.QueryRowContext(ctx, query, args...)}
}

func (d *Driver) Dialect() database.Dialect { return Dialect{} }

func (d *Driver) InspectSchema(ctx context.Context) (*database.SchemaInfo, error) {
	if d.schema == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "no database selected: set one in the DSN or the config")
	}
	return database.InspectSchema(ctx, d, d.schema)
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool             { return r.rows.Next() }
func (r *mysqlRows) Scan(dest ...any) error { return mapError(r.rows.Scan(dest...), "scan failed") }
func (r *mysqlRows) Close()                 { _ = r.rows.Close() }
func (r *mysqlRows) Err() error             { return mapError(r.rows.Err(), "row iteration failed") }

type mysqlRow struct {
	row *sql.Row
}

func (r *mysqlRow) Scan(dest ...any) error { return mapError(r.row.Scan(dest...), "scan failed") }
