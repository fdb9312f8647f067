package queryir

import (
	"fmt"

	"github.com/roach88/graphgate/internal/path"
)

// ValidationResult contains portability analysis of a graph.
//
// Every graph can be rendered as SPARQL. The SQL backend maps shapes to
// tables and single hops to columns, so it only covers a subset.
type ValidationResult struct {
	// IsPortable indicates the graph can be rendered by every backend.
	IsPortable bool

	// Warnings lists the features the SQL backend cannot render.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks a graph against the relational subset.
//
// Rules:
//  1. Paths are one forward hop or one inverse hop
//  2. Child vertices have a shape with a target class (their table)
//  3. Visible literal leaves are single-valued (one column)
//  4. Aggregates are COUNTs over reference edges
//
// Validate is a pure function with no side effects.
func Validate(g *Graph) ValidationResult {
	v := &validator{warnings: []string{}}
	if g == nil {
		v.addWarning("nil graph")
	} else {
		v.validateVertex(g, g.root)
	}
	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateVertex(g *Graph, id VertexID) {
	vert := g.vertices[id]
	if vert.Shape == nil || vert.Shape.TargetClass() == "" {
		v.addWarning("vertice ?%s has no target class - no table to select from", vert.Subject)
	}
	for _, eid := range vert.Edges {
		v.validateEdge(g, g.edges[eid])
	}
}

func (v *validator) validateEdge(g *Graph, e Edge) {
	name := e.Property.Name()

	// Rule 1: one hop
	if !path.IsSimple(e.Path) && !path.IsSingleInverse(e.Path) {
		v.addWarning("field %q uses path %s - only single hops map to columns", name, e.Path)
	}

	// Rule 3: single-valued literals
	if !e.Property.IsReference() && e.Visible && !e.Property.IsSingular() {
		v.addWarning("field %q is multi-valued - literal lists have no column form", name)
	}

	// Rule 4: aggregates
	if e.Aggregate != nil {
		if !e.Property.IsReference() {
			v.addWarning("aggregate %s over literal field %q", e.Aggregate.Kind, name)
		} else if e.Aggregate.Kind != AggCount {
			v.addWarning("aggregate %s over field %q - only COUNT is supported", e.Aggregate.Kind, name)
		}
	}

	if e.Object != NoVertex {
		v.validateVertex(g, e.Object)
	}
}
