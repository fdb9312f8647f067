package shape

import (
	"strings"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/path"
)

// Constraint violation codes (E120-E129)
const (
	ErrPropertyIdentity  = "E120" // property id or name empty
	ErrPropertyPath      = "E121" // invalid property path
	ErrLiteralNoDatatype = "E122" // literal without datatype
	ErrKindConflict      = "E123" // reference with datatype, literal with class
	ErrCountOrder        = "E124" // minCount > maxCount
	ErrCountRange        = "E125" // minCount < 0 or maxCount < 1
	ErrDuplicateField    = "E126" // duplicate field on a node shape
	ErrDuplicateShape    = "E127" // duplicate shape in registry
	ErrNodeShapeIdentity = "E128" // node shape id or name empty
)

// Violations checks a property definition against every rule.
// Returns all violations found (does not fail-fast).
func Violations(def PropertyDef) []*ir.Error {
	var errs []*ir.Error
	field := def.Name

	// E120: identity
	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, ir.NewConstraintViolation(ErrPropertyIdentity, "", field,
			"property name is required"))
	}
	if strings.TrimSpace(def.ID) == "" {
		errs = append(errs, ir.NewConstraintViolation(ErrPropertyIdentity, "", field,
			"property id is required"))
	}

	// E121: path
	if err := path.Validate(def.Path); err != nil {
		e := ir.NewConstraintViolation(ErrPropertyPath, "", field, "invalid path")
		e.Err = err
		errs = append(errs, e)
	}

	// E122/E123: kind
	switch def.Kind {
	case KindLiteral:
		if def.Datatype == "" {
			errs = append(errs, ir.NewConstraintViolation(ErrLiteralNoDatatype, "", field,
				"literal property requires a datatype"))
		}
		if def.Class != "" {
			errs = append(errs, ir.NewConstraintViolation(ErrKindConflict, "", field,
				"literal property cannot declare class %q", def.Class))
		}
	case KindReference:
		if def.Datatype != "" {
			errs = append(errs, ir.NewConstraintViolation(ErrKindConflict, "", field,
				"reference property cannot declare datatype %q", def.Datatype))
		}
	default:
		errs = append(errs, ir.NewConstraintViolation(ErrKindConflict, "", field,
			"unknown value kind %d", def.Kind))
	}

	// E124/E125: cardinality
	if def.MinCount != nil && *def.MinCount < 0 {
		errs = append(errs, ir.NewConstraintViolation(ErrCountRange, "", field,
			"minCount must be >= 0, got %d", *def.MinCount))
	}
	if def.MaxCount != nil && *def.MaxCount < 1 {
		errs = append(errs, ir.NewConstraintViolation(ErrCountRange, "", field,
			"maxCount must be >= 1, got %d", *def.MaxCount))
	}
	if def.MinCount != nil && def.MaxCount != nil && *def.MinCount > *def.MaxCount {
		errs = append(errs, ir.NewConstraintViolation(ErrCountOrder, "", field,
			"minCount %d exceeds maxCount %d", *def.MinCount, *def.MaxCount))
	}

	return errs
}

// Locate returns a copy of err attributed to the named node shape.
func Locate(err *ir.Error, shape string) *ir.Error {
	cp := *err
	cp.Shape = shape
	return &cp
}
