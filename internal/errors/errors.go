// Package errors provides structured error types and exit codes for docsuite.
package errors

import (
	"errors"
	"fmt"

	"github.com/AndreyAkinshin/docsuite/pkg/docsuite"
)

// Exit codes returned by the docsuite CLI.
const (
	ExitSuccess      = docsuite.ExitSuccess
	ExitRuntimeError = docsuite.ExitFailure
	ExitSetupError   = docsuite.ExitSetupError
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindIO ErrorKind = iota
	KindParse
	KindInvocation
	KindStorage
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindInvocation:
		return "invocation"
	case KindStorage:
		return "storage"
	case KindConfig:
		return "config"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the base error type for docsuite.
type Error struct {
	Kind    ErrorKind
	Message string
	Package string // Package name if applicable
	Cause   error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		if msg == "" {
			msg = e.Cause.Error()
		} else {
			msg = msg + ": " + e.Cause.Error()
		}
	}
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s", e.Package, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindIO, KindParse, KindConfig:
		return ExitSetupError
	default:
		return ExitRuntimeError
	}
}

// IO creates an error for an unreadable file or directory.
func IO(err error, format string, args ...any) *Error {
	return &Error{Kind: KindIO, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Parse creates an error for malformed descriptor or report contents.
func Parse(err error, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Storage creates an error for a failed artifact write or upload.
func Storage(err error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Config creates a new configuration error.
func Config(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...any) *Error {
	return Config(fmt.Sprintf(format, args...))
}

// Invocation creates an error for a test command that emitted diagnostics
// or could not be run to completion.
func Invocation(pkg, message string, cause error) *Error {
	return &Error{Kind: KindInvocation, Package: pkg, Message: message, Cause: cause}
}

// IsKind reports whether err or any error it wraps is an *Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// GetExitCode returns the exit code for an error. Joined errors map to the
// highest exit code among their members.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		code := ExitSuccess
		for _, e := range joined.Unwrap() {
			code = max(code, GetExitCode(e))
		}
		if code == ExitSuccess {
			return ExitRuntimeError
		}
		return code
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitRuntimeError
}
