package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes compile and schema errors.
type ErrorKind string

const (
	// KindSchema indicates a requested field or shape does not exist.
	KindSchema ErrorKind = "SCHEMA_ERROR"

	// KindUnsupportedOperation indicates an unknown operator, or an operation
	// attempted on a field whose value kind does not support it.
	KindUnsupportedOperation ErrorKind = "UNSUPPORTED_OPERATION"

	// KindTypeMismatch indicates a filter value does not have the expected shape.
	KindTypeMismatch ErrorKind = "TYPE_MISMATCH"

	// KindConstraintViolation indicates an inconsistent shape definition.
	// Raised at schema-load time only, never while compiling a request.
	KindConstraintViolation ErrorKind = "CONSTRAINT_VIOLATION"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrSchema               = &Error{Kind: KindSchema}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
	ErrTypeMismatch         = &Error{Kind: KindTypeMismatch}
	ErrConstraintViolation  = &Error{Kind: KindConstraintViolation}
)

// Error is the single error type that crosses package boundaries.
//
// None of the kinds are retried internally: a failed compile or schema
// construction returns no partial result.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Code is a stable E1xx code for constraint violations (optional otherwise).
	Code string

	// Shape and Field locate the error in the shape model (either may be empty).
	Shape string
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	b.WriteString(": ")
	switch {
	case e.Shape != "" && e.Field != "":
		fmt.Fprintf(&b, "%s.%s: ", e.Shape, e.Field)
	case e.Shape != "":
		fmt.Fprintf(&b, "%s: ", e.Shape)
	case e.Field != "":
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind
}

// NewSchemaError creates a SCHEMA_ERROR.
func NewSchemaError(shape, field, format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Shape: shape, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedOperation creates an UNSUPPORTED_OPERATION error.
func NewUnsupportedOperation(shape, field, format string, args ...any) *Error {
	return &Error{Kind: KindUnsupportedOperation, Shape: shape, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewTypeMismatch creates a TYPE_MISMATCH error.
func NewTypeMismatch(shape, field, format string, args ...any) *Error {
	return &Error{Kind: KindTypeMismatch, Shape: shape, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewConstraintViolation creates a CONSTRAINT_VIOLATION with a stable code.
func NewConstraintViolation(code, shape, field, format string, args ...any) *Error {
	return &Error{Kind: KindConstraintViolation, Code: code, Shape: shape, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsSchemaError returns true if err is a SCHEMA_ERROR.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsUnsupportedOperation returns true if err is an UNSUPPORTED_OPERATION error.
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsTypeMismatch returns true if err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsConstraintViolation returns true if err is a CONSTRAINT_VIOLATION.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsClientError reports whether err was caused by the request rather than
// by the schema. Constraint violations and untyped errors are server-side.
func IsClientError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindSchema || kind == KindUnsupportedOperation || kind == KindTypeMismatch
}
