package mysql

import (
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/datforge/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied    = 1044
	errAccessDenied      = 1045
	errNoDatabase        = 1046
	errUnknownDatabase   = 1049
	errTooManyConns      = 1040
	errUserConnLimit     = 1203
	errTableAccessDenied = 1142
	errDuplicateEntry    = 1062
	errRowIsReferenced   = 1451
	errNoReferencedRow   = 1452
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
// It returns nil for a nil err.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if e, ok := errs.FromContext(err, msg); ok {
		return e
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errNoDatabase, errUnknownDatabase, errTooManyConns, errUserConnLimit:
		return errs.ErrKindConnectionFailed
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied:
		return errs.ErrKindPermissionDenied
	case errDuplicateEntry, errRowIsReferenced, errNoReferencedRow:
		return errs.ErrKindInvalidInput
	default:
		return errs.ErrKindQueryFailed
	}
}
