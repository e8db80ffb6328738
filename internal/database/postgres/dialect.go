package postgres

import (
	"strconv"

	"github.com/lib/pq"

	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/model"
)

// Dialect spells statements for PostgreSQL: $n placeholders and
// double-quoted identifiers.
type Dialect struct{}

func (Dialect) Name() database.Driver { return database.DriverPostgres }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }

func (Dialect) ColumnType(t model.AttributeType) string {
	if t == model.TypeString || t == model.TypeStringIncr {
		return "TEXT"
	}
	return t.SQLType()
}
