package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/koustreak/datforge/internal/database"
)

// ListTables returns user table names; the schema argument is ignored.
func (d *Driver) ListTables(ctx context.Context, _ string) ([]string, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := d.db.QueryContext(ctx, q)
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

// InspectTable reads PRAGMA table_info. Its pk column is the 1-based
// position of the column in the primary key, 0 outside it.
func (d *Driver) InspectTable(ctx context.Context, _, table string) (*database.TableInfo, error) {
	q := fmt.Sprintf("PRAGMA table_info(%s)", database.QuoteANSI(table))
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	info := &database.TableInfo{Name: table}
	type keyCol struct {
		pos  int
		name string
	}
	var keys []keyCol
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		info.Columns = append(info.Columns, database.ColumnInfo{
			Name:         name,
			DataType:     colType,
			IsNullable:   notNull == 0 && pk == 0,
			IsPrimaryKey: pk > 0,
		})
		if pk > 0 {
			keys = append(keys, keyCol{pos: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}

	sort.Slice(keys, func(a, b int) bool { return keys[a].pos < keys[b].pos })
	for _, k := range keys {
		info.PrimaryKey = append(info.PrimaryKey, k.name)
	}
	return info, nil
}

// ListForeignKeys reads PRAGMA foreign_key_list of every table. A
// reference written without target columns points at the target's
// primary key.
func (d *Driver) ListForeignKeys(ctx context.Context, schema string) ([]database.ForeignKey, error) {
	tables, err := d.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	var fks []database.ForeignKey
	for _, table := range tables {
		q := fmt.Sprintf("PRAGMA foreign_key_list(%s)", database.QuoteANSI(table))
		found, err := d.foreignKeys(ctx, q, table)
		if err != nil {
			return nil, err
		}
		for i, fk := range found {
			if fk.ToColumn != "" {
				continue
			}
			target, err := d.InspectTable(ctx, schema, fk.ToTable)
			if err != nil {
				return nil, err
			}
			seq := 0
			for j := 0; j < i; j++ {
				if found[j].Name == fk.Name {
					seq++
				}
			}
			if seq < len(target.PrimaryKey) {
				found[i].ToColumn = target.PrimaryKey[seq]
			}
		}
		fks = append(fks, found...)
	}
	return fks, nil
}

func (d *Driver) foreignKeys(ctx context.Context, q, table string) ([]database.ForeignKey, error) {
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}
	defer rows.Close()

	var out []database.ForeignKey
	for rows.Next() {
		var (
			id, seq                                 int
			target, from, onUpdate, onDelete, match string
			to                                      sql.NullString
		)
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, mapError(err, "failed to scan foreign key")
		}
		out = append(out, database.ForeignKey{
			Name:       fmt.Sprintf("%s_fk%d", table, id),
			FromTable:  table,
			FromColumn: from,
			ToTable:    target,
			ToColumn:   to.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}
	// rows come grouped by id, seq ascending within a group
	return out, nil
}
