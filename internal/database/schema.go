package database

import (
	"context"
	"slices"
)

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name         string
	DataType     string
	IsNullable   bool
	IsPrimaryKey bool
}

// TableInfo describes a table, its columns in declaration order and its
// primary key in key order.
type TableInfo struct {
	Name       string
	Columns    []ColumnInfo
	PrimaryKey []string
}

// ForeignKey is one column pair of a foreign key constraint. Composite
// constraints appear as several pairs sharing Name, in key order.
type ForeignKey struct {
	Name       string
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

// SchemaInfo is the full introspected database schema.
type SchemaInfo struct {
	Tables      []TableInfo
	ForeignKeys []ForeignKey
}

// Table returns the named table.
func (s *SchemaInfo) Table(name string) (*TableInfo, bool) {
	i := slices.IndexFunc(s.Tables, func(t TableInfo) bool { return t.Name == name })
	if i < 0 {
		return nil, false
	}
	return &s.Tables[i], true
}

// Introspector reads the structure of a database (tables, columns, keys).
// Each driver implements the engine-specific queries; InspectSchema is shared.
type Introspector interface {
	ListTables(ctx context.Context, schema string) ([]string, error)
	InspectTable(ctx context.Context, schema, table string) (*TableInfo, error)
	ListForeignKeys(ctx context.Context, schema string) ([]ForeignKey, error)
}

// InspectSchema builds the full SchemaInfo by orchestrating the Introspector.
func InspectSchema(ctx context.Context, i Introspector, schema string) (*SchemaInfo, error) {
	tables, err := i.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	info := &SchemaInfo{}
	for _, table := range tables {
		ti, err := i.InspectTable(ctx, schema, table)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *ti)
	}

	fks, err := i.ListForeignKeys(ctx, schema)
	if err != nil {
		return nil, err
	}
	info.ForeignKeys = fks
	return info, nil
}
