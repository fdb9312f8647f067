package schema

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/graphgate/internal/ir"
)

// Error code constants for schema loading.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeNoShapes      = "E100" // Description declares no shapes
	ErrCodeInvalidField  = "E101" // Field has the wrong CUE type
	ErrCodeMissingField  = "E102" // Required field absent
	ErrCodeUnknownPrefix = "E103" // Compact IRI uses an undeclared prefix
	ErrCodeInvalidPath   = "E104" // Path description malformed
)

// CompileError locates a problem in a shape description.
// Constraint violations raised by the shape model are wrapped in Err and
// remain reachable through errors.As.
type CompileError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped shape model error, if any.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// LoadError represents an error that occurred while loading a schema directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error, field string) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Code: ErrCodeInvalidField, Field: field, Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{Code: ErrCodeInvalidField, Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// toLoadError converts a compile error to a LoadError keeping position and code.
func toLoadError(err error) *LoadError {
	var ce *CompileError
	if errors.As(err, &ce) {
		code := ce.Code
		var irErr *ir.Error
		if errors.As(ce.Err, &irErr) && irErr.Code != "" {
			code = irErr.Code
		}
		return &LoadError{Code: code, Message: fmt.Sprintf("%s: %s", ce.Field, ce.Message), Pos: ce.Pos, Err: err}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}
