package gateway

import (
	"errors"
	"fmt"

	"github.com/4miners/shift/internal/escape"
	"github.com/4miners/shift/internal/namespace"
	"github.com/4miners/shift/internal/queryir"
	"github.com/4miners/shift/internal/querysql"
	"github.com/4miners/shift/internal/schema"
)

// Caller-visible failures. The strings are part of the wire contract with
// existing dapps and must not change.
var (
	// ErrQuery is returned when the database rejects a query or batch chunk.
	ErrQuery = errors.New("Sql#query error")

	// ErrCreateTables is returned when a schema entry fails to apply.
	ErrCreateTables = errors.New("Sql#createTables error")

	// ErrDropTables is returned when a drop statement fails.
	ErrDropTables = errors.New("Sql#dropTables error")

	// ErrInvalidTableFormat is returned for an empty definition list.
	ErrInvalidTableFormat = errors.New("Invalid table format")

	// ErrInvalidBatch is returned for a batch payload whose shape is wrong.
	ErrInvalidBatch = errors.New("invalid batch payload")
)

// Error is an execution failure. It carries the generic sentinel and a
// reference into the operator log; the driver error itself is only logged.
type Error struct {
	// Op is the gateway operation: select, insert, update, remove, batch,
	// createTables or dropTables.
	Op string

	// Ref correlates this error with the log record holding the detail.
	Ref string

	// Err is one of ErrQuery, ErrCreateTables or ErrDropTables.
	Err error

	// Definition is the schema entry that failed, for createTables.
	Definition *schema.Definition
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (ref=%s)", e.Err, e.Ref)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UnknownTableTypeError is returned by CreateTables for an entry whose type
// is neither "table" nor "index".
type UnknownTableTypeError struct {
	Type string
}

func (e *UnknownTableTypeError) Error() string {
	return "Unknown table type: " + e.Type
}

// IsExecutionError reports whether err came back from the database.
func IsExecutionError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsBuildError reports whether err was detected before any statement ran:
// a malformed descriptor, an invalid identifier, an unsupported value or a
// bad schema entry.
func IsBuildError(err error) bool {
	if err == nil || IsExecutionError(err) {
		return false
	}
	var (
		de *queryir.DecodeError
		ve *queryir.ValidationError
		be *querysql.BuildError
		ue *UnknownTableTypeError
	)
	return errors.As(err, &de) ||
		errors.As(err, &ve) ||
		errors.As(err, &be) ||
		errors.As(err, &ue) ||
		errors.Is(err, ErrInvalidTableFormat) ||
		errors.Is(err, ErrInvalidBatch) ||
		errors.Is(err, namespace.ErrInvalidDappID) ||
		errors.Is(err, escape.ErrUnsupportedType) ||
		errors.Is(err, escape.ErrInvalidIdentifier)
}
