package shape

import (
	"github.com/roach88/graphgate/internal/ir"
)

// Registry indexes node shapes by id, name and target class.
//
// It is built once by NewRegistry and never mutated afterwards, so a single
// instance is passed by pointer into every compilation.
type Registry struct {
	shapes   []*NodeShape
	byID     map[string]*NodeShape
	byName   map[string]*NodeShape
	byTarget map[string]*NodeShape
}

// NewRegistry indexes shapes. Duplicate ids, names or target classes fail
// with E127.
func NewRegistry(shapes ...*NodeShape) (*Registry, error) {
	r := &Registry{
		shapes:   make([]*NodeShape, 0, len(shapes)),
		byID:     make(map[string]*NodeShape, len(shapes)),
		byName:   make(map[string]*NodeShape, len(shapes)),
		byTarget: make(map[string]*NodeShape, len(shapes)),
	}
	for _, s := range shapes {
		if s == nil {
			continue
		}
		if _, dup := r.byID[s.ID()]; dup {
			return nil, ir.NewConstraintViolation(ErrDuplicateShape, s.Name(), "", "duplicate node shape id %q", s.ID())
		}
		if _, dup := r.byName[s.Name()]; dup {
			return nil, ir.NewConstraintViolation(ErrDuplicateShape, s.Name(), "", "duplicate node shape name %q", s.Name())
		}
		if tc := s.TargetClass(); tc != "" {
			if other, dup := r.byTarget[tc]; dup {
				return nil, ir.NewConstraintViolation(ErrDuplicateShape, s.Name(), "",
					"target class %q already claimed by %s", tc, other.Name())
			}
			r.byTarget[tc] = s
		}
		r.byID[s.ID()] = s
		r.byName[s.Name()] = s
		r.shapes = append(r.shapes, s)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(shapes ...*NodeShape) *Registry {
	r, err := NewRegistry(shapes...)
	if err != nil {
		panic(err)
	}
	return r
}

// ByID looks up a node shape by IRI.
func (r *Registry) ByID(id string) (*NodeShape, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// ByName looks up a node shape by object type name.
func (r *Registry) ByName(name string) (*NodeShape, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// ByTargetClass looks up the node shape targeting a class IRI.
func (r *Registry) ByTargetClass(class string) (*NodeShape, bool) {
	s, ok := r.byTarget[class]
	return s, ok
}

// Shapes returns all node shapes in registration order.
func (r *Registry) Shapes() []*NodeShape {
	out := make([]*NodeShape, len(r.shapes))
	copy(out, r.shapes)
	return out
}

// Len returns the number of node shapes.
func (r *Registry) Len() int { return len(r.shapes) }

// Snapshot returns a canonical-JSON friendly description of the registry.
// Its fingerprint identifies a schema version.
func (r *Registry) Snapshot() map[string]any {
	shapes := make([]any, 0, len(r.shapes))
	for _, s := range r.shapes {
		props := make([]any, 0, s.Len())
		for _, p := range s.order {
			entry := map[string]any{
				"id":   p.ID(),
				"name": p.Name(),
				"path": p.Path().String(),
				"kind": p.Kind().String(),
			}
			if p.Datatype() != "" {
				entry["datatype"] = p.Datatype()
			}
			if p.Class() != "" {
				entry["class"] = p.Class()
			}
			if min, ok := p.MinCount(); ok {
				entry["minCount"] = min
			}
			if max, ok := p.MaxCount(); ok {
				entry["maxCount"] = max
			}
			if len(p.hasValue) > 0 {
				entry["hasValue"] = p.HasValue()
			}
			props = append(props, entry)
		}
		shapes = append(shapes, map[string]any{
			"id":         s.ID(),
			"name":       s.Name(),
			"target":     s.TargetClass(),
			"properties": props,
		})
	}
	return map[string]any{"shapes": shapes}
}

// Fingerprint returns the content hash of the registry.
func (r *Registry) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainSchema, r.Snapshot())
}
