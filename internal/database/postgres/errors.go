package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/datforge/internal/errs"
)

// PostgreSQL SQLSTATE classes and codes.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection       = "08"
	pgClassAuthorization    = "28"
	pgInsufficientPrivilege = "42501"
	pgUniqueViolation       = "23505"
	pgForeignKeyViolation   = "23503"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
// It returns nil for a nil err.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if e, ok := errs.FromContext(err, msg); ok {
		return e
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classify(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func classify(code string) errs.ErrKind {
	switch {
	case len(code) >= 2 && code[:2] == pgClassConnection:
		return errs.ErrKindConnectionFailed
	case len(code) >= 2 && code[:2] == pgClassAuthorization, code == pgInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case code == pgUniqueViolation, code == pgForeignKeyViolation:
		return errs.ErrKindInvalidInput
	default:
		return errs.ErrKindQueryFailed
	}
}
