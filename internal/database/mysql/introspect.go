package mysql

import (
	"context"

	"github.com/koustreak/datforge/internal/database"
)

// ListTables returns all base table names in the given database.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.db.QueryContext(ctx, q, schema)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

// InspectTable returns the columns of a table in ordinal order and its
// primary key in key order.
func (d *Driver) InspectTable(ctx context.Context, schema, table string) (*database.TableInfo, error) {
	const cols = `
		SELECT column_name,
		       data_type,
		       is_nullable = 'YES',
		       column_key = 'PRI'
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name   = ?
		ORDER BY ordinal_position`

	rows, err := d.db.QueryContext(ctx, cols, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	info := &database.TableInfo{Name: table}
	for rows.Next() {
		var c database.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.IsPrimaryKey); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		info.Columns = append(info.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}

	const pk = `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema    = ?
		  AND table_name      = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`

	keyRows, err := d.db.QueryContext(ctx, pk, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch primary key")
	}
	defer keyRows.Close()
	for keyRows.Next() {
		var name string
		if err := keyRows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan primary key")
		}
		info.PrimaryKey = append(info.PrimaryKey, name)
	}
	if err := keyRows.Err(); err != nil {
		return nil, mapError(err, "error iterating primary key")
	}
	return info, nil
}

// ListForeignKeys returns every foreign key column pair of the database,
// composite constraints in key order.
func (d *Driver) ListForeignKeys(ctx context.Context, schema string) ([]database.ForeignKey, error) {
	const q = `
		SELECT constraint_name,
		       table_name,
		       column_name,
		       referenced_table_name,
		       referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema           = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY table_name, constraint_name, ordinal_position`

	rows, err := d.db.QueryContext(ctx, q, schema)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}
	defer rows.Close()

	var fks []database.ForeignKey
	for rows.Next() {
		var fk database.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.FromTable, &fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, mapError(err, "failed to scan foreign key")
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}
	return fks, nil
}
