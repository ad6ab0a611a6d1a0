package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies storage engine failures.
type ErrorKind int

// Error kinds.
const (
	// KindIO means an artifact is missing or cannot be written.
	KindIO ErrorKind = iota + 1
	// KindSchema means a schema side-car is absent or cannot be decoded.
	KindSchema
	// KindValidation means a value does not fit its column, a required
	// column is missing, or a schema definition is malformed.
	KindValidation
	// KindTooManyArgs means an update names more columns than the schema has.
	KindTooManyArgs
	// KindColumnNotFound means a named column does not exist.
	KindColumnNotFound
	// KindRowNotFound means a strict update or delete matched no rows.
	KindRowNotFound
	// KindReferential means a foreign key does not type-check against its target.
	KindReferential
	// KindExists means a table or database already exists.
	KindExists
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io error"
	case KindSchema:
		return "schema error"
	case KindValidation:
		return "validation error"
	case KindTooManyArgs:
		return "too many arguments"
	case KindColumnNotFound:
		return "column not found"
	case KindRowNotFound:
		return "row not found"
	case KindReferential:
		return "referential error"
	case KindExists:
		return "already exists"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by the storage packages.
// Table, Column, Value and Expected are filled in when they apply.
type Error struct {
	Kind     ErrorKind
	Op       string
	Table    string
	Column   string
	Value    string
	Expected string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Table != "" {
		fmt.Fprintf(&b, " (table %q", e.Table)
		if e.Column != "" {
			fmt.Fprintf(&b, ", column %q", e.Column)
		}
		b.WriteString(")")
	} else if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, ": expected %s, got %q", e.Expected, e.Value)
	} else if e.Value != "" {
		fmt.Fprintf(&b, ": value %q", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IOError wraps an I/O failure.
func IOError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}
