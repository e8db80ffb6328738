package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/datforge/internal/model"
)

// InsertBuilder constructs a parameterized multi-row INSERT using a fluent
// API. Values are never interpolated into the SQL string, always passed as
// args.
//
// Usage:
//
//	sql, args, err := Insert("Parent", dialect).
//	    Columns("pk", "label").
//	    Values(1, "sciences").
//	    Values(2, "EII").
//	    Build()
type InsertBuilder struct {
	table   string
	dialect Dialect
	columns []string
	rows    [][]any
}

// Insert starts a new InsertBuilder for the given table and dialect.
func Insert(table string, d Dialect) *InsertBuilder {
	return &InsertBuilder{table: table, dialect: d}
}

// Columns sets the inserted columns. Every row must carry one value per column.
func (b *InsertBuilder) Columns(cols ...string) *InsertBuilder {
	b.columns = cols
	return b
}

// Values appends one row.
func (b *InsertBuilder) Values(vals ...any) *InsertBuilder {
	b.rows = append(b.rows, vals)
	return b
}

// Len is the number of rows appended so far.
func (b *InsertBuilder) Len() int { return len(b.rows) }

// Build produces the final SQL string and argument slice.
func (b *InsertBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errInvalidInput("insert without a table")
	}
	if len(b.columns) == 0 {
		return "", nil, errInvalidInputf("insert into %s without columns", b.table)
	}
	if len(b.rows) == 0 {
		return "", nil, errInvalidInputf("insert into %s without rows", b.table)
	}

	quoted := make([]string, len(b.columns))
	for i, c := range b.columns {
		quoted[i] = b.dialect.QuoteIdent(c)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.dialect.QuoteIdent(b.table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(b.rows)*len(b.columns))
	argIdx := 1
	for r, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, errInvalidInputf("insert into %s: row %d has %d values for %d columns",
				b.table, r, len(row), len(b.columns))
		}
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for i, v := range row {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.dialect.Placeholder(argIdx))
			argIdx++
			args = append(args, v)
		}
		sb.WriteByte(')')
	}
	return sb.String(), args, nil
}

// CreateTableBuilder renders the CREATE TABLE statement of a relation:
// every attribute in declaration order, the primary key, and optionally the
// foreign keys that reference a whole primary key.
type CreateTableBuilder struct {
	rel         *model.Relation
	dialect     Dialect
	ifNotExists bool
	foreignKeys bool
}

// CreateTable starts a CreateTableBuilder for rel.
func CreateTable(rel *model.Relation, d Dialect) *CreateTableBuilder {
	return &CreateTableBuilder{rel: rel, dialect: d}
}

// IfNotExists leaves an existing table untouched.
func (b *CreateTableBuilder) IfNotExists() *CreateTableBuilder {
	b.ifNotExists = true
	return b
}

// WithForeignKeys declares FOREIGN KEY constraints. A foreign key on a
// strict prefix of the target key has no SQL counterpart and is skipped.
func (b *CreateTableBuilder) WithForeignKeys() *CreateTableBuilder {
	b.foreignKeys = true
	return b
}

// Build produces the statement.
func (b *CreateTableBuilder) Build() (string, error) {
	if b.rel == nil {
		return "", errInvalidInput("create table without a relation")
	}
	q := b.dialect.QuoteIdent

	var defs []string
	for _, a := range b.rel.Attributes() {
		def := q(a.Name) + " " + b.dialect.ColumnType(a.Type)
		if b.rel.IsKey(a.Name) {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if pk := b.rel.PrimaryKey(); len(pk) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteAll(pk, q)+")")
	}
	if b.foreignKeys {
		for _, fk := range b.rel.ForeignKeys() {
			if len(fk.Attributes) != len(fk.Target.PrimaryKey()) {
				continue
			}
			defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
				quoteAll(fk.Attributes, q), q(fk.Target.Name()), quoteAll(fk.TargetAttributes(), q)))
		}
	}

	head := "CREATE TABLE "
	if b.ifNotExists {
		head += "IF NOT EXISTS "
	}
	return head + q(b.rel.Name()) + " (" + strings.Join(defs, ", ") + ")", nil
}

// DropTable renders a DROP TABLE IF EXISTS statement.
func DropTable(table string, d Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
}

func quoteAll(names []string, q func(string) string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = q(n)
	}
	return strings.Join(out, ", ")
}

// QuoteANSI wraps a SQL identifier in double-quotes (ANSI standard).
// This safely handles reserved words and mixed-case names.
func QuoteANSI(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
