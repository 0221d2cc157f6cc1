package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a unitcalc error.
type ErrorKind string

// Error kinds. Every error produced by the core carries exactly one kind.
const (
	KindLex         ErrorKind = "LexError"
	KindAggregation ErrorKind = "AggregationError"
	KindSyntax      ErrorKind = "SyntaxError"
	KindUnit        ErrorKind = "UnitError"
	KindRegistry    ErrorKind = "RegistryError"
	KindFileFormat  ErrorKind = "FileFormatError"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrLex         = &Error{Kind: KindLex}
	ErrAggregation = &Error{Kind: KindAggregation}
	ErrSyntax      = &Error{Kind: KindSyntax}
	ErrUnit        = &Error{Kind: KindUnit}
	ErrRegistry    = &Error{Kind: KindRegistry}
	ErrFileFormat  = &Error{Kind: KindFileFormat}
)

// Error is the single domain error type returned by parsing, evaluation,
// conversion and registry mutation.
type Error struct {
	Kind    ErrorKind
	Message string

	// Cycle lists the units forming a dependency cycle (RegistryError only).
	Cycle []string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Cycle) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Cycle, " -> "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind. A target with a
// message only matches an identical error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind returns true if err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Common error constructors.

// NewLexError creates a LexError.
func NewLexError(msg string) *Error {
	return &Error{Kind: KindLex, Message: msg}
}

// NewAggregationError creates an AggregationError.
func NewAggregationError(msg string) *Error {
	return &Error{Kind: KindAggregation, Message: msg}
}

// NewSyntaxError creates a SyntaxError.
func NewSyntaxError(msg string) *Error {
	return &Error{Kind: KindSyntax, Message: msg}
}

// NewUnitError creates a UnitError.
func NewUnitError(msg string) *Error {
	return &Error{Kind: KindUnit, Message: msg}
}

// NewRegistryError creates a RegistryError.
func NewRegistryError(msg string) *Error {
	return &Error{Kind: KindRegistry, Message: msg}
}

// NewCycleError creates a RegistryError describing a dependency cycle.
func NewCycleError(cycle []string) *Error {
	return &Error{Kind: KindRegistry, Message: "dependency cycle detected", Cycle: cycle}
}

// NewFileFormatError creates a FileFormatError.
func NewFileFormatError(msg string) *Error {
	return &Error{Kind: KindFileFormat, Message: msg}
}

// WrapUnitError creates a UnitError with an underlying cause.
func WrapUnitError(msg string, err error) *Error {
	return &Error{Kind: KindUnit, Message: msg, Err: err}
}
