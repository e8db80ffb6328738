package mysql

import (
	"strings"

	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/model"
)

// Dialect spells statements for MySQL: ? placeholders and backquoted
// identifiers.
type Dialect struct{}

func (Dialect) Name() database.Driver { return database.DriverMySQL }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ColumnType keeps VARCHAR for text so text columns can be part of a key.
func (Dialect) ColumnType(t model.AttributeType) string { return t.SQLType() }
