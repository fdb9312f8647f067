package request

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/roach88/graphgate/internal/ir"
)

// Error codes for request translation failures.
const (
	ErrCodeSyntax    = "E200" // document does not parse
	ErrCodeOperation = "E201" // no executable operation
	ErrCodeArgument  = "E202" // unknown or malformed argument
	ErrCodeVariable  = "E203" // undefined variable
	ErrCodeFragment  = "E204" // unknown, cyclic or mistyped fragment
	ErrCodeDirective = "E205" // unknown directive
)

func unsupported(code string, pos *ast.Position, shape, field, format string, args ...any) *ir.Error {
	err := ir.NewUnsupportedOperation(shape, field, format, args...)
	err.Code = code
	if pos != nil {
		err.Message += atPosition(pos)
	}
	return err
}

func mismatch(code string, pos *ast.Position, shape, field, format string, args ...any) *ir.Error {
	err := ir.NewTypeMismatch(shape, field, format, args...)
	err.Code = code
	if pos != nil {
		err.Message += atPosition(pos)
	}
	return err
}

func atPosition(pos *ast.Position) string {
	return fmt.Sprintf(" (line %d, column %d)", pos.Line, pos.Column)
}
