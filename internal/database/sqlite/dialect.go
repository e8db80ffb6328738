package sqlite

import (
	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/model"
)

// Dialect spells statements for SQLite: ? placeholders, double-quoted
// identifiers and the storage classes INTEGER and TEXT.
type Dialect struct{}

func (Dialect) Name() database.Driver { return database.DriverSQLite }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) QuoteIdent(name string) string { return database.QuoteANSI(name) }

func (Dialect) ColumnType(t model.AttributeType) string {
	switch t {
	case model.TypeInteger, model.TypeIntegerIncr:
		return "INTEGER"
	case model.TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}
