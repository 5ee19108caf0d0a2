package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes. main maps a command's error to one of these with
// GetExitCode.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // assertions failed, validation errors, replay diverged
	ExitCommandError = 2 // bad flags, missing files, unreadable archive
)

// ExitError carries the exit code a failed command should end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain.
// Any other non-nil error is a plain failure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes a command's result as text or as a JSON
// envelope, depending on --format.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool

	// ErrWriter receives VerboseLog output. Nil means Writer.
	ErrWriter io.Writer
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the envelope every --format json command prints.
type CLIResponse struct {
	Status string    `json:"status"` // ok or error
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of the envelope. Code is one of the E-codes
// in loader.go or an E_* failure tag.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func envelope(data any, cliErr *CLIError) CLIResponse {
	if cliErr != nil {
		return CLIResponse{Status: "error", Data: data, Error: cliErr}
	}
	return CLIResponse{Status: "ok", Data: data}
}

// JSON writes an indented envelope. A non-nil cliErr marks it as failed.
func (f *OutputFormatter) JSON(data any, cliErr *CLIError) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope(data, cliErr))
}

// Success prints data, or a one-line ok envelope in JSON mode.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(envelope(data, nil))
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error prints "Error [code]: message", or a one-line error envelope in
// JSON mode. Details are only shown in text when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(envelope(nil, &CLIError{
			Code:    code,
			Message: message,
			Details: details,
		}))
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line to ErrWriter when --verbose is set.
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

// Fail reports err in the configured format and returns it as an
// ExitError with code.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, msg, nil)
	return WrapExitError(exitCode, message, err)
}
