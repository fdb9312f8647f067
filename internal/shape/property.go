package shape

import (
	"slices"

	"github.com/roach88/graphgate/internal/path"
)

// Kind is the value kind of a property.
type Kind int

const (
	// KindLiteral fields hold typed literal values.
	KindLiteral Kind = iota + 1

	// KindReference fields point at another entity.
	KindReference
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// PropertyDef is the mutable input to NewPropertyShape.
type PropertyDef struct {
	ID       string
	Name     string
	Path     path.PropertyPath
	MinCount *int
	MaxCount *int
	Kind     Kind
	Datatype string // literal only
	Class    string // reference only; empty for untyped references
	HasValue []string
}

// PropertyShape describes one field. Immutable once constructed.
type PropertyShape struct {
	id       string
	name     string
	path     path.PropertyPath
	minCount *int
	maxCount *int
	kind     Kind
	datatype string
	class    string
	hasValue []string
}

// NewPropertyShape validates def and returns the property shape.
// The first violation is returned as a CONSTRAINT_VIOLATION; use
// Violations to collect all of them.
func NewPropertyShape(def PropertyDef) (*PropertyShape, error) {
	if errs := Violations(def); len(errs) > 0 {
		return nil, errs[0]
	}
	return &PropertyShape{
		id:       def.ID,
		name:     def.Name,
		path:     def.Path,
		minCount: copyInt(def.MinCount),
		maxCount: copyInt(def.MaxCount),
		kind:     def.Kind,
		datatype: def.Datatype,
		class:    def.Class,
		hasValue: slices.Clone(def.HasValue),
	}, nil
}

// MustPropertyShape is like NewPropertyShape but panics on error.
// Intended for fixtures and tests.
func MustPropertyShape(def PropertyDef) *PropertyShape {
	p, err := NewPropertyShape(def)
	if err != nil {
		panic(err)
	}
	return p
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ID returns the property shape IRI.
func (p *PropertyShape) ID() string { return p.id }

// Name returns the field name.
func (p *PropertyShape) Name() string { return p.name }

// Path returns the traversal path.
func (p *PropertyShape) Path() path.PropertyPath { return p.path }

// Kind returns the value kind.
func (p *PropertyShape) Kind() Kind { return p.kind }

// Datatype returns the literal datatype IRI (empty for references).
func (p *PropertyShape) Datatype() string { return p.datatype }

// Class returns the target class IRI (empty for literals and untyped references).
func (p *PropertyShape) Class() string { return p.class }

// HasValue returns the fixed values the field must take, if any.
func (p *PropertyShape) HasValue() []string { return slices.Clone(p.hasValue) }

// IsReference reports whether the field points at another entity.
func (p *PropertyShape) IsReference() bool { return p.kind == KindReference }

// MinCount returns the declared minimum count.
// The second result is false when no minimum was declared.
func (p *PropertyShape) MinCount() (int, bool) {
	if p.minCount == nil {
		return 0, false
	}
	return *p.minCount, true
}

// MaxCount returns the declared maximum count.
// The second result is false when the field is unbounded.
func (p *PropertyShape) MaxCount() (int, bool) {
	if p.maxCount == nil {
		return 0, false
	}
	return *p.maxCount, true
}

// IsSingular reports whether the field holds at most one value.
func (p *PropertyShape) IsSingular() bool {
	max, ok := p.MaxCount()
	return ok && max == 1
}

// TargetShape resolves the node shape a reference field points at.
// Returns false for literal fields, untyped references and classes with no
// registered shape.
func (p *PropertyShape) TargetShape(reg *Registry) (*NodeShape, bool) {
	if p.kind != KindReference || p.class == "" || reg == nil {
		return nil, false
	}
	return reg.ByTargetClass(p.class)
}
