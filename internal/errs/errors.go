// Package errs provides the unified error type used across datri-oracle.
//
// Every subsystem (driver, engine, snapshot store, server) wraps its native
// errors into *errs.Error before returning them to callers. Oracle error
// numbers survive the wrapping in Error.Code so teardown logic can tell
// "sequence does not exist" apart from a real failure.
//
// Usage:
//
//	// In the driver, wrap native errors:
//	return errs.WrapCode(errs.ErrKindNotFound, "table not found", 942, oraErr)
//
//	// In the engine, swallow an expected absence:
//	if errs.HasCode(err, 2289) {
//	    return nil
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no table, no routine, no object
	ErrKindConnectionFailed         // cannot reach the backend or session lost
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindUnsupported              // feature missing from the target edition
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all datri-oracle subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Code    int   // native ORA-NNNNN number, 0 when not from the database
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Code != 0 {
		prefix = fmt.Sprintf("%s ORA-%05d", prefix, e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
// A native code already present in the cause chain is carried over.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Code: CodeOf(cause), Cause: cause}
}

// WrapCode is Wrap with an explicit native error number.
func WrapCode(kind ErrKind, msg string, code int, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Code: code, Cause: cause}
}

// Context wraps err with additional context while keeping its kind and code.
// Returns nil when err is nil.
func Context(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kindOf(err), Message: msg, Code: CodeOf(err), Cause: err}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsUnsupported reports whether err signals a database feature that the
// target edition does not implement.
func IsUnsupported(err error) bool {
	return kindOf(err) == ErrKindUnsupported
}

// KindOf returns the ErrKind of the first *Error in the chain.
func KindOf(err error) ErrKind {
	return kindOf(err)
}

// CodeOf returns the first non-zero native error number in the chain.
func CodeOf(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Code != 0 {
			return e.Code
		}
		err = e.Cause
	}
	return 0
}

// HasCode reports whether err carries one of the given native error numbers.
func HasCode(err error, codes ...int) bool {
	c := CodeOf(err)
	if c == 0 {
		return false
	}
	for _, code := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
