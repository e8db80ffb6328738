package database

import "github.com/koustreak/datforge/internal/errs"

func errInvalidInput(msg string) *errs.Error {
	return errs.New(errs.ErrKindInvalidInput, msg)
}

func errInvalidInputf(format string, args ...any) *errs.Error {
	return errs.Newf(errs.ErrKindInvalidInput, format, args...)
}
