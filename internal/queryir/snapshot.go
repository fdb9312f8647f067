package queryir

import (
	"github.com/roach88/graphgate/internal/ir"
)

// Snapshot returns a canonical-JSON friendly description of the graph.
// Two graphs with equal snapshots serialize to identical query text.
func (g *Graph) Snapshot() map[string]any {
	vertices := make([]any, len(g.vertices))
	for i, v := range g.vertices {
		vertices[i] = snapshotVertex(g, v)
	}
	return map[string]any{
		"version":  ir.GraphVersion,
		"root":     int(g.root),
		"vertices": vertices,
	}
}

func snapshotVertex(g *Graph, v Vertice) map[string]any {
	edges := make([]any, len(v.Edges))
	for i, id := range v.Edges {
		edges[i] = snapshotEdge(g.edges[id])
	}

	filters := make([]any, len(v.Filters))
	for i, f := range v.Filters {
		filters[i] = f.Expr.String()
	}

	constraints := make([]any, len(v.Constraints))
	for i, c := range v.Constraints {
		values := make([]any, len(c.Values))
		for j, val := range c.Values {
			values[j] = val.String()
		}
		entry := map[string]any{"variable": c.Variable.String(), "values": values}
		if c.Predicate != "" {
			entry["predicate"] = c.Predicate
		}
		constraints[i] = entry
	}

	orderings := make([]any, len(v.Orderings))
	for i, o := range v.Orderings {
		orderings[i] = map[string]any{"variable": o.Variable.String(), "descending": o.Descending}
	}

	shapeID := ""
	if v.Shape != nil {
		shapeID = v.Shape.ID()
	}
	return map[string]any{
		"id":          int(v.ID),
		"shape":       shapeID,
		"subject":     v.Subject.String(),
		"join":        v.Join.String(),
		"edges":       edges,
		"filters":     filters,
		"constraints": constraints,
		"orderings":   orderings,
	}
}

func snapshotEdge(e Edge) map[string]any {
	entry := map[string]any{
		"id":       int(e.ID),
		"property": e.Property.ID(),
		"path":     e.Path.String(),
		"output":   e.Output().String(),
		"optional": e.Optional,
		"visible":  e.Visible,
		"type":     e.Type.String(),
		"variable": e.Variable.String(),
	}
	if e.Object != NoVertex {
		entry["object"] = int(e.Object)
	}
	if e.Aggregate != nil {
		entry["aggregate"] = map[string]any{
			"kind":     e.Aggregate.Kind.String(),
			"variable": e.Aggregate.Variable.String(),
		}
	}
	return entry
}

// Fingerprint returns the content hash of the graph snapshot.
func (g *Graph) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainQueryGraph, g.Snapshot())
}
