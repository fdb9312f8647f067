// Package path implements the property path algebra: how a field gets from
// a subject to its object.
//
// A path is one hop (Predicate), an ordered composition (Sequence, right
// folded and terminated by End), or a reversed traversal (Inverse). Paths
// are immutable values built once by the schema loader.
package path

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrInvalidPath is wrapped by every error returned from Validate.
var ErrInvalidPath = errors.New("invalid property path")

// PropertyPath is a sealed interface.
// Only Predicate, Sequence, Inverse and End implement it.
type PropertyPath interface {
	propertyPath() // Sealed - only these types implement it

	// String renders the path in SPARQL 1.1 property path syntax.
	String() string
}

// Predicate is a single hop via one relation IRI.
type Predicate struct {
	IRI string
}

func (Predicate) propertyPath() {}

// Sequence traverses First, then Rest.
type Sequence struct {
	First PropertyPath
	Rest  PropertyPath
}

func (Sequence) propertyPath() {}

// Inverse traverses Of in reverse direction.
type Inverse struct {
	Of PropertyPath
}

func (Inverse) propertyPath() {}

// End terminates a right-folded Sequence. It contributes no segments.
type End struct{}

func (End) propertyPath() {}

// Seq right-folds paths into a Sequence terminated by End.
// A single path still yields Sequence{p, End{}}; no paths yields End{}.
func Seq(paths ...PropertyPath) PropertyPath {
	var out PropertyPath = End{}
	for i := len(paths) - 1; i >= 0; i-- {
		out = Sequence{First: paths[i], Rest: out}
	}
	return out
}

// Segment is one hop of a flattened path.
type Segment struct {
	IRI     string
	Inverse bool
}

// String renders the segment as a one-hop SPARQL path.
func (s Segment) String() string {
	if s.Inverse {
		return "^<" + s.IRI + ">"
	}
	return "<" + s.IRI + ">"
}

// Segments returns the hops of p in traversal order.
//
// Sequences flatten left to right. Under Inverse the order of a sequence is
// reversed and every hop flips direction, so Inverse{Inverse{p}} yields the
// same segments as p. The returned sequence is lazy and may be ranged over
// any number of times.
func Segments(p PropertyPath) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		walk(p, false, yield)
	}
}

func walk(p PropertyPath, inverse bool, yield func(Segment) bool) bool {
	switch v := p.(type) {
	case Predicate:
		return yield(Segment{IRI: v.IRI, Inverse: inverse})
	case *Predicate:
		return walk(*v, inverse, yield)
	case Sequence:
		if inverse {
			return walk(v.Rest, true, yield) && walk(v.First, true, yield)
		}
		return walk(v.First, false, yield) && walk(v.Rest, false, yield)
	case *Sequence:
		return walk(*v, inverse, yield)
	case Inverse:
		return walk(v.Of, !inverse, yield)
	case *Inverse:
		return walk(*v, inverse, yield)
	case End, *End, nil:
		return true
	default:
		panic(fmt.Sprintf("path: unknown PropertyPath %T", p))
	}
}

// Flatten collects the segments of p.
func Flatten(p PropertyPath) []Segment {
	var out []Segment
	for seg := range Segments(p) {
		out = append(out, seg)
	}
	return out
}

// IsSimple reports whether p is exactly one forward hop.
func IsSimple(p PropertyPath) bool {
	n := 0
	simple := false
	for seg := range Segments(p) {
		n++
		if n > 1 {
			return false
		}
		simple = !seg.Inverse
	}
	return n == 1 && simple
}

// IsSingleInverse reports whether p is exactly one reversed hop.
func IsSingleInverse(p PropertyPath) bool {
	segs := Flatten(p)
	return len(segs) == 1 && segs[0].Inverse
}

func (p Predicate) String() string {
	return "<" + p.IRI + ">"
}

func (s Sequence) String() string {
	parts := elements(s)
	rendered := make([]string, 0, len(parts))
	for _, part := range parts {
		rendered = append(rendered, part.String())
	}
	return strings.Join(rendered, "/")
}

func (i Inverse) String() string {
	switch of := i.Of.(type) {
	case Predicate:
		return "^" + of.String()
	case Sequence:
		if parts := elements(of); len(parts) == 1 {
			return Inverse{Of: parts[0]}.String()
		}
	case End:
		return ""
	}
	return "^(" + i.Of.String() + ")"
}

func (End) String() string {
	return ""
}

// elements lists the non-End members of a right-folded sequence chain.
func elements(s Sequence) []PropertyPath {
	var out []PropertyPath
	var cur PropertyPath = s
	for {
		seq, ok := cur.(Sequence)
		if !ok {
			break
		}
		if _, end := seq.First.(End); !end && seq.First != nil {
			out = append(out, seq.First)
		}
		cur = seq.Rest
	}
	if _, end := cur.(End); !end && cur != nil {
		out = append(out, cur)
	}
	return out
}

// Validate checks that p is well formed and has at least one hop.
func Validate(p PropertyPath) error {
	if p == nil {
		return fmt.Errorf("%w: path is nil", ErrInvalidPath)
	}
	if err := validate(p); err != nil {
		return err
	}
	for range Segments(p) {
		return nil
	}
	return fmt.Errorf("%w: path has no segments", ErrInvalidPath)
}

func validate(p PropertyPath) error {
	switch v := p.(type) {
	case Predicate:
		if v.IRI == "" {
			return fmt.Errorf("%w: predicate has empty IRI", ErrInvalidPath)
		}
	case Sequence:
		if v.First == nil || v.Rest == nil {
			return fmt.Errorf("%w: sequence has nil part", ErrInvalidPath)
		}
		if err := validate(v.First); err != nil {
			return err
		}
		return validate(v.Rest)
	case Inverse:
		if v.Of == nil {
			return fmt.Errorf("%w: inverse of nil", ErrInvalidPath)
		}
		return validate(v.Of)
	case End:
	case *Predicate:
		return validate(*v)
	case *Sequence:
		return validate(*v)
	case *Inverse:
		return validate(*v)
	default:
		return fmt.Errorf("%w: unsupported variant %T", ErrInvalidPath, p)
	}
	return nil
}
