// Package cli provides shared configuration and utilities for the datforge CLI.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/koustreak/datforge/internal/errs"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitConfig      = 2
	ExitSchemaParse = 3
	ExitDBConnect   = 4
	ExitStore       = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code err calls for. Errors that are not
// ExitErrors exit with ExitGeneral.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitCode(err))
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// SchemaParseError creates an ExitError with ExitSchemaParse code.
func SchemaParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitSchemaParse, Message: msg, Err: err}
}

// DBConnectError creates an ExitError with ExitDBConnect code.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// StoreError creates an ExitError with ExitStore code.
func StoreError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitStore, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}

// GenerationError classifies a failure of schema loading or generation.
// Inconsistent or malformed documents exit with ExitSchemaParse.
func GenerationError(msg string, err error) *ExitError {
	switch {
	case errs.IsSchemaInconsistent(err), errs.IsInvalidInput(err), errs.IsNotFound(err):
		return SchemaParseError(msg, err)
	default:
		return GeneralError(msg, err)
	}
}
