package shape

import (
	"slices"
	"strings"

	"github.com/roach88/graphgate/internal/ir"
)

// NodeDef is the mutable input to NewNodeShape.
type NodeDef struct {
	ID          string
	Name        string
	TargetClass string
	Properties  []*PropertyShape
}

// NodeShape describes one object type. Immutable once constructed.
type NodeShape struct {
	id          string
	name        string
	targetClass string
	order       []*PropertyShape
	byName      map[string]*PropertyShape
}

// NewNodeShape validates def and returns the node shape.
// Property shapes may be shared between node shapes.
func NewNodeShape(def NodeDef) (*NodeShape, error) {
	// E128: identity
	if strings.TrimSpace(def.ID) == "" {
		return nil, ir.NewConstraintViolation(ErrNodeShapeIdentity, def.Name, "", "node shape id is required")
	}
	if strings.TrimSpace(def.Name) == "" {
		return nil, ir.NewConstraintViolation(ErrNodeShapeIdentity, def.ID, "", "node shape name is required")
	}

	n := &NodeShape{
		id:          def.ID,
		name:        def.Name,
		targetClass: def.TargetClass,
		order:       make([]*PropertyShape, 0, len(def.Properties)),
		byName:      make(map[string]*PropertyShape, len(def.Properties)),
	}
	for _, p := range def.Properties {
		if p == nil {
			return nil, ir.NewConstraintViolation(ErrPropertyIdentity, def.Name, "", "nil property shape")
		}
		// E126: duplicate field
		if _, dup := n.byName[p.Name()]; dup {
			return nil, ir.NewConstraintViolation(ErrDuplicateField, def.Name, p.Name(),
				"duplicate field %q", p.Name())
		}
		n.byName[p.Name()] = p
		n.order = append(n.order, p)
	}
	return n, nil
}

// MustNodeShape is like NewNodeShape but panics on error.
func MustNodeShape(def NodeDef) *NodeShape {
	n, err := NewNodeShape(def)
	if err != nil {
		panic(err)
	}
	return n
}

// ID returns the node shape IRI.
func (n *NodeShape) ID() string { return n.id }

// Name returns the object type name.
func (n *NodeShape) Name() string { return n.name }

// TargetClass returns the class IRI instances of this shape carry.
// Empty when the shape has no target class.
func (n *NodeShape) TargetClass() string { return n.targetClass }

// Property looks up a field by name.
func (n *NodeShape) Property(name string) (*PropertyShape, bool) {
	p, ok := n.byName[name]
	return p, ok
}

// Properties returns the fields in declaration order.
func (n *NodeShape) Properties() []*PropertyShape {
	return slices.Clone(n.order)
}

// Len returns the number of fields.
func (n *NodeShape) Len() int { return len(n.order) }
