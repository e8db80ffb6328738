package postgres

import (
	"context"

	"github.com/koustreak/datforge/internal/database"
)

// ListTables returns all base table names in the given schema.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return d.fetchStringList(ctx, "failed to list tables", q, schema)
}

// InspectTable returns the columns of a table in ordinal order and its
// primary key in key order.
func (d *Driver) InspectTable(ctx context.Context, schema, table string) (*database.TableInfo, error) {
	const cols = `
		SELECT column_name,
		       data_type,
		       is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name   = $2
		ORDER BY ordinal_position`

	rows, err := d.pool.Query(ctx, cols, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	info := &database.TableInfo{Name: table}
	for rows.Next() {
		var c database.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		info.Columns = append(info.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}

	const pk = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema    = $1
		  AND tc.table_name      = $2
		ORDER BY kcu.ordinal_position`

	info.PrimaryKey, err = d.fetchStringList(ctx, "failed to fetch primary key", pk, schema, table)
	if err != nil {
		return nil, err
	}
	for i := range info.Columns {
		for _, k := range info.PrimaryKey {
			if info.Columns[i].Name == k {
				info.Columns[i].IsPrimaryKey = true
			}
		}
	}
	return info, nil
}

// ListForeignKeys returns every foreign key column pair of the schema,
// composite constraints in key order.
func (d *Driver) ListForeignKeys(ctx context.Context, schema string) ([]database.ForeignKey, error) {
	const q = `
		SELECT kcu.constraint_name,
		       kcu.table_name,
		       kcu.column_name,
		       ref.table_name,
		       ref.column_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name   = rc.constraint_name
		 AND kcu.constraint_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage ref
		  ON ref.constraint_name   = rc.unique_constraint_name
		 AND ref.constraint_schema = rc.unique_constraint_schema
		 AND ref.ordinal_position  = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = $1
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`

	rows, err := d.pool.Query(ctx, q, schema)
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

// fetchStringList is a helper for queries that return a single text column.
func (d *Driver) fetchStringList(ctx context.Context, errMsg, q string, args ...any) ([]string, error) {
	rows, err := d.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, mapError(err, errMsg)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, errMsg)
	}
	return list, nil
}
