// Package errors provides typed error handling for privhelper-go.
//
// This package defines domain-specific error types that let callers tell a
// failed name lookup apart from a failed identity change or an unsupported
// platform. All errors support the standard errors.Is() and errors.As()
// functions for error inspection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrBufferAllocation indicates a lookup needed a buffer larger than the cap.
	ErrBufferAllocation ErrorKind = iota
	// ErrLookup indicates a user or group name did not resolve.
	ErrLookup
	// ErrUnsupportedPlatform indicates the platform cannot change effective ids.
	ErrUnsupportedPlatform
	// ErrSyscall indicates an effective id change failed.
	ErrSyscall
	// ErrInvalidState indicates an operation was attempted in an invalid state.
	ErrInvalidState
	// ErrInvalidConfig indicates a configuration error.
	ErrInvalidConfig
	// ErrInternal indicates an internal error.
	ErrInternal
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrBufferAllocation:
		return "buffer allocation error"
	case ErrLookup:
		return "lookup error"
	case ErrUnsupportedPlatform:
		return "unsupported platform"
	case ErrSyscall:
		return "syscall error"
	case ErrInvalidState:
		return "invalid state"
	case ErrInvalidConfig:
		return "invalid config"
	case ErrInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// PrivilegeError represents an error that occurred while resolving an
// identity or changing the effective identity of the process.
type PrivilegeError struct {
	// Op is the operation that failed (e.g., "resolve user", "drop", "raise").
	Op string
	// Name is the user or group name involved, if applicable.
	Name string
	// Step is the identity change that failed ("setegid" or "seteuid").
	Step string
	// ID is the target numeric id of Step.
	ID int
	// Err is the underlying error.
	Err error
	// Kind is the error classification.
	Kind ErrorKind
	// Detail provides additional context about the error.
	Detail string
}

// Error returns the error message.
func (e *PrivilegeError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Op != "" {
		msg = fmt.Sprintf("%s: ", e.Op)
	}
	if e.Name != "" {
		msg += fmt.Sprintf("%q: ", e.Name)
	}
	if e.Step != "" {
		msg += fmt.Sprintf("%s(%d): ", e.Step, e.ID)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *PrivilegeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is a *PrivilegeError with the same Kind.
func (e *PrivilegeError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*PrivilegeError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new PrivilegeError with the given kind.
func New(kind ErrorKind, op string, detail string) *PrivilegeError {
	return &PrivilegeError{
		Op:     op,
		Kind:   kind,
		Detail: detail,
	}
}

// Wrap wraps an error with operation context.
func Wrap(err error, kind ErrorKind, op string) *PrivilegeError {
	return &PrivilegeError{
		Op:   op,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op string, detail string) *PrivilegeError {
	return &PrivilegeError{
		Op:     op,
		Err:    err,
		Kind:   kind,
		Detail: detail,
	}
}

// WrapName wraps a lookup error for the given user or group name.
func WrapName(err error, kind ErrorKind, op string, name string) *PrivilegeError {
	return &PrivilegeError{
		Op:   op,
		Name: name,
		Err:  err,
		Kind: kind,
	}
}

// WrapStep wraps a failed effective id change as an ErrSetID.
func WrapStep(err error, op string, step string, id int) *PrivilegeError {
	return &PrivilegeError{
		Op:     op,
		Step:   step,
		ID:     id,
		Err:    err,
		Kind:   ErrSetID.Kind,
		Detail: ErrSetID.Detail,
	}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var perr *PrivilegeError
	if errors.As(err, &perr) {
		return perr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a PrivilegeError.
func GetKind(err error) (ErrorKind, bool) {
	var perr *PrivilegeError
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
