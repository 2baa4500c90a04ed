package serialshell

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes errors raised while classifying or executing a line.
type ErrorKind int

const (
	// ErrKindUnknownCommand indicates a line that matched no grammar rule.
	ErrKindUnknownCommand ErrorKind = iota
	// ErrKindMalformedArgument indicates a recognized command with an invalid argument.
	ErrKindMalformedArgument
	// ErrKindCommandFailed indicates a shell command exited with a non-zero status.
	ErrKindCommandFailed
	// ErrKindCommandNotFound indicates a shell command could not be located or started.
	ErrKindCommandNotFound
	// ErrKindTransport indicates a fault in the underlying serial port.
	ErrKindTransport
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindUnknownCommand:
		return "unknown command"
	case ErrKindMalformedArgument:
		return "malformed argument"
	case ErrKindCommandFailed:
		return "command failed"
	case ErrKindCommandNotFound:
		return "command not found"
	case ErrKindTransport:
		return "transport error"
	default:
		return "error"
	}
}

// Error is the error type returned by the parser, expander, runner and
// interpreter.
type Error struct {
	Kind     ErrorKind
	Value    string // The offending line, argument or command
	Message  string // Additional context
	ExitCode int    // For ErrKindCommandFailed
	Stdout   string // Captured stdout of a failed shell escape
	Stderr   string // Captured stderr of a failed command
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindUnknownCommand:
		return fmt.Sprintf("Unknown command: %s", e.Value)
	case ErrKindMalformedArgument:
		if e.Message != "" {
			return fmt.Sprintf("Malformed argument '%s': %s", e.Value, e.Message)
		}
		return fmt.Sprintf("Malformed argument '%s'", e.Value)
	case ErrKindCommandFailed:
		return fmt.Sprintf("Command fail: %s (exit status %d)", e.Value, e.ExitCode)
	case ErrKindCommandNotFound:
		return fmt.Sprintf("Command not found: %s", e.Value)
	case ErrKindTransport:
		if e.Cause != nil {
			return fmt.Sprintf("transport error: %s: %v", e.Message, e.Cause)
		}
		return fmt.Sprintf("transport error: %s", e.Message)
	default:
		return fmt.Sprintf("error: %s", e.Value)
	}
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind, so that callers
// can match on kind alone with errors.Is(err, &Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Value == "" || t.Value == e.Value)
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsFatal reports whether err should end the session. Only transport faults
// are fatal; every other error is reported and the session continues.
func IsFatal(err error) bool {
	return IsKind(err, ErrKindTransport)
}

func newUnknownCommandError(line string) error {
	return &Error{Kind: ErrKindUnknownCommand, Value: line}
}

func newMalformedArgumentError(value, msg string) error {
	return &Error{Kind: ErrKindMalformedArgument, Value: value, Message: msg}
}

func newCommandFailedError(cmd string, res Result) *Error {
	return &Error{Kind: ErrKindCommandFailed, Value: cmd, ExitCode: res.ExitCode, Stderr: res.Stderr}
}

func newCommandNotFoundError(name string, cause error) error {
	return &Error{Kind: ErrKindCommandNotFound, Value: name, Cause: cause}
}

// NewTransportError wraps a serial port fault.
func NewTransportError(message string, cause error) error {
	return &Error{Kind: ErrKindTransport, Message: message, Cause: cause}
}
