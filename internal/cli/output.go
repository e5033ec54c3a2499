package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/4miners/shift/internal/gateway"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The database rejected a statement
	ExitCommandError = 2 // Bad input file, invalid descriptor, no database, etc.
)

// Error codes reported in the JSON envelope and text output.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeNotFound      = "E002" // Input file not found or unreadable
	ErrCodeConfig        = "E003" // Configuration or connection error
	ErrCodeDecode        = "E004" // Malformed descriptor or payload
	ErrCodeBuild         = "E005" // Statement could not be built
	ErrCodeSchemaInvalid = "E006" // Definitions file failed validation
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeExecution     = "E100" // Database rejected a statement
)

// ExitError carries the process exit code for a failed command. The
// command has already reported the failure by the time it is returned.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // error code, e.g. E100
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

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command prints in json format.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E100", etc.
	Message string `json:"message"`           // what the caller may see
	Details any    `json:"details,omitempty"` // op, ref and table for database failures
}

// QueryPlan is the statement a query dry run would execute.
type QueryPlan struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes to ErrWriter when verbose mode is on, so JSON on
// Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Result prints a gateway result. In text format selects print one JSON
// object per row and a row count; other actions print the rows affected.
func (f *OutputFormatter) Result(res gateway.Result, rows bool) error {
	if f.Format == "json" {
		return f.Success(res)
	}
	if !rows {
		fmt.Fprintf(f.Writer, "✓ %d row(s) affected\n", res.RowsAffected)
		return nil
	}
	for _, row := range res.Rows {
		line, err := json.Marshal(row)
		if err != nil {
			return err
		}
		fmt.Fprintln(f.Writer, string(line))
	}
	fmt.Fprintf(f.Writer, "(%d row(s))\n", len(res.Rows))
	return nil
}

// Plan prints a compiled statement and its numbered parameters.
func (f *OutputFormatter) Plan(plan QueryPlan) error {
	if f.Format == "json" {
		if plan.Params == nil {
			plan.Params = []any{}
		}
		return f.Success(plan)
	}
	fmt.Fprintln(f.Writer, plan.SQL)
	for i, p := range plan.Params {
		fmt.Fprintf(f.Writer, "  $%d = %v\n", i+1, p)
	}
	return nil
}

// Statements prints planned statements one per line.
func (f *OutputFormatter) Statements(stmts []string) error {
	if f.Format == "json" {
		if stmts == nil {
			stmts = []string{}
		}
		return f.Success(map[string]any{"statements": stmts})
	}
	for _, stmt := range stmts {
		fmt.Fprintln(f.Writer, stmt)
	}
	return nil
}
