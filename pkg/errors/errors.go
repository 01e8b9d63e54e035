// Package errors provides the book's structured error type.
//
// Every validation failure the matching engine can produce is one of a
// small, closed set of Kinds (see the Kind* constants). Callers are
// expected to switch on Kind or use errors.Is against the sentinel
// values below rather than string-match messages.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Standard error functions re-exported so callers need only import
// this package.
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Kind enumerates the book's validation error categories.
type Kind string

const (
	// KindInvalidPrice: price not a positive multiple of tick_size,
	// or missing on a limit order.
	KindInvalidPrice Kind = "InvalidPrice"
	// KindInvalidVolume: zero or negative volume.
	KindInvalidVolume Kind = "InvalidVolume"
	// KindUnknownOrderId: cancel/modify references an id the book
	// never issued.
	KindUnknownOrderId Kind = "UnknownOrderId"
	// KindStaleOrderId: cancel/modify references a terminal order.
	// Non-fatal by policy: the book turns it into a no-op that emits
	// a cancel-noop event instead of returning an error, so racing
	// strategies don't crash. The kind exists so that condition has
	// a name in logs and event reasons.
	KindStaleOrderId Kind = "StaleOrderId"
	// KindConfigError: constructor or runner arguments are invalid,
	// e.g. step_size <= 0.
	KindConfigError Kind = "ConfigError"
)

// FieldError names the offending field alongside a human message.
type FieldError struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind Kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// Error is the book's error type. It carries a Kind for programmatic
// matching, a human Message, optional per-field detail, and an
// optional wrapped cause.
type Error struct {
	Kind    Kind         `json:"kind"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`

	trace []byte
	cause error
}

var _ error = (*Error)(nil)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] ", e.Kind)
	if e.Message != "" {
		str += e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	if len(e.trace) > 0 {
		str += fmt.Sprintf("\n\nTrace: %s", string(e.trace))
	}
	return str
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Explain returns a copy of the error with Message replaced.
func (e *Error) Explain(format string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(format, args...)
	return &err
}

// Trace captures the current goroutine stack on the error.
func (e *Error) Trace() *Error {
	stack := make([]byte, 2048)
	n := runtime.Stack(stack, false)
	e.trace = stack[:n]
	return e
}

func (e *Error) WithField(kind Kind, field, message string) *Error {
	newError := *e
	newError.Fields = append(newError.Fields, NewFieldError(kind, field, message))
	return &newError
}

// Is implements errors.Is by comparing Kind, so callers can write
// errors.Is(err, errors.New(KindInvalidPrice, "")).
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if e.cause != nil {
		return Is(e.cause, target)
	}
	return false
}

// Sentinel errors for the five defined Kinds, for use with errors.Is.
var (
	ErrInvalidPrice   = New(KindInvalidPrice, "")
	ErrInvalidVolume  = New(KindInvalidVolume, "")
	ErrUnknownOrderId = New(KindUnknownOrderId, "")
	ErrStaleOrderId   = New(KindStaleOrderId, "")
	ErrConfigError    = New(KindConfigError, "")
)
