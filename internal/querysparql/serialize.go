package querysparql

import (
	"fmt"
	"strings"

	"github.com/roach88/graphgate/internal/queryir"
)

const indentUnit = "  "

// Serialize renders g as a CONSTRUCT query.
func Serialize(g *queryir.Graph) (string, error) {
	if g == nil {
		return "", fmt.Errorf("cannot serialize nil graph")
	}

	w := &writer{g: g}
	w.line("CONSTRUCT {")
	w.depth++
	w.template(g.Root())
	w.depth--
	w.line("}")

	w.line("WHERE {")
	w.depth++
	if err := w.group(g.Root()); err != nil {
		return "", err
	}
	if err := w.filters(); err != nil {
		return "", err
	}
	w.depth--
	w.line("}")

	if order := orderBy(g.Root()); order != "" {
		w.line("ORDER BY %s", order)
	}
	return w.b.String(), nil
}

type writer struct {
	g     *queryir.Graph
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	w.b.WriteString(strings.Repeat(indentUnit, w.depth))
	if len(args) == 0 {
		w.b.WriteString(format)
	} else {
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteByte('\n')
}

// template writes the output patterns of v and of every child reached
// through a visible edge.
func (w *writer) template(v queryir.Vertice) {
	w.typeTriples(v)
	for _, e := range w.g.Edges(v.ID) {
		if !e.Visible {
			continue
		}
		object := e.Variable
		if e.Aggregate != nil {
			object = e.Aggregate.Variable
		}
		w.line("?%s %s ?%s .", v.Subject, e.Output(), object)
		if !e.IsLeaf() && e.Aggregate == nil {
			w.template(w.g.Vertex(e.Object))
		}
	}
}

func (w *writer) typeTriples(v queryir.Vertice) {
	for _, c := range v.Constraints {
		if c.Predicate == "" {
			continue
		}
		for _, value := range c.Values {
			w.line("?%s <%s> %s .", c.Variable, c.Predicate, value)
		}
	}
}

// group writes the WHERE patterns of v.
func (w *writer) group(v queryir.Vertice) error {
	w.typeTriples(v)

	membership := make(map[queryir.Var][]queryir.Constraint)
	for _, c := range v.Constraints {
		if c.Predicate == "" {
			membership[c.Variable] = append(membership[c.Variable], c)
		}
	}

	for _, e := range w.g.Edges(v.ID) {
		if e.Aggregate != nil {
			w.aggregate(v, e)
			continue
		}

		if e.Optional {
			w.line("OPTIONAL {")
			w.depth++
		}
		w.line("?%s %s ?%s .", v.Subject, e.Path, e.Variable)
		for _, c := range membership[e.Variable] {
			w.line("FILTER(?%s IN (%s))", c.Variable, joinOperands(c.Values))
		}
		if !e.IsLeaf() {
			if err := w.group(w.g.Vertex(e.Object)); err != nil {
				return err
			}
		}
		if e.Optional {
			w.depth--
			w.line("}")
		}
	}
	return nil
}

func (w *writer) aggregate(v queryir.Vertice, e queryir.Edge) {
	w.line("OPTIONAL {")
	w.depth++
	w.line("SELECT ?%s (%s(?%s) AS ?%s) WHERE {", v.Subject, e.Aggregate.Kind, e.Variable, e.Aggregate.Variable)
	w.depth++
	w.line("?%s %s ?%s .", v.Subject, e.Path, e.Variable)
	w.depth--
	w.line("}")
	w.line("GROUP BY ?%s", v.Subject)
	w.depth--
	w.line("}")
}

// filters writes one top-level FILTER per vertice with filters, joining
// them with the vertice's join type.
func (w *writer) filters() error {
	var err error
	w.g.Walk(func(v queryir.Vertice, _ int) {
		if err != nil || len(v.Filters) == 0 {
			return
		}
		exprs := make([]queryir.Expression, len(v.Filters))
		for i, f := range v.Filters {
			if f.Expr == nil {
				err = fmt.Errorf("filter on ?%s has no expression", f.Variable)
				return
			}
			exprs[i] = f.Expr
		}
		var joined queryir.Expression
		if joined, err = queryir.Join(v.Join, exprs); err != nil {
			return
		}
		w.line("FILTER(%s)", joined)
	})
	return err
}

func joinOperands(ops []queryir.Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

func orderBy(root queryir.Vertice) string {
	parts := make([]string, len(root.Orderings))
	for i, o := range root.Orderings {
		if o.Descending {
			parts[i] = fmt.Sprintf("DESC(?%s)", o.Variable)
		} else {
			parts[i] = fmt.Sprintf("ASC(?%s)", o.Variable)
		}
	}
	return strings.Join(parts, " ")
}
