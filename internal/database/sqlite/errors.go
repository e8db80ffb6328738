package sqlite

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/koustreak/datforge/internal/errs"
)

// mapError translates go-sqlite3 errors into *errs.Error.
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

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return errs.Wrap(classify(sqErr.Code), msg+": "+sqErr.Error(), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func classify(code sqlite3.ErrNo) errs.ErrKind {
	switch code {
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
		return errs.ErrKindConnectionFailed
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return errs.ErrKindPermissionDenied
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return errs.ErrKindTimeout
	case sqlite3.ErrConstraint, sqlite3.ErrMismatch:
		return errs.ErrKindInvalidInput
	default:
		return errs.ErrKindQueryFailed
	}
}
