package compiler

import (
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/queryir"
	"github.com/roach88/graphgate/internal/shape"
)

// Compiler builds query graphs against one shape registry.
//
// Thread-safety: a Compiler is safe for concurrent use. Every call owns its
// builder and cycle guard; the registry is read-only.
type Compiler struct {
	reg      *shape.Registry
	log      logrus.FieldLogger
	metrics  Metrics
	scope    GuardScope
	ids      IDGenerator
	now      func() time.Time
	maxEdges int
}

// New creates a compiler over reg.
func New(reg *shape.Registry, opts ...Option) *Compiler {
	c := &Compiler{
		reg:      reg,
		log:      discardLogger(),
		metrics:  noopMetrics{},
		scope:    GuardCompile,
		ids:      UUIDv7Generator{},
		now:      time.Now,
		maxEdges: DefaultMaxEdges,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the shape registry the compiler resolves against.
func (c *Compiler) Registry() *shape.Registry { return c.reg }

// Result is one successful compilation.
type Result struct {
	ID          string
	Graph       *queryir.Graph
	Fingerprint string
	Portability queryir.ValidationResult
	Duration    time.Duration
}

// Compile builds the query graph for sel rooted at root.
//
// Errors are *ir.Error values: SCHEMA_ERROR for unknown fields or shapes,
// UNSUPPORTED_OPERATION and TYPE_MISMATCH for filters the shape cannot
// serve. On error no graph is returned.
func (c *Compiler) Compile(root *shape.NodeShape, sel Selection) (*queryir.Graph, error) {
	res, err := c.Run(root, sel)
	if err != nil {
		return nil, err
	}
	return res.Graph, nil
}

// Run compiles like Compile and also returns the compile id, the graph
// fingerprint and the SQL portability report.
func (c *Compiler) Run(root *shape.NodeShape, sel Selection) (*Result, error) {
	id := c.ids.Generate()
	start := c.now()

	g, err := c.compile(root, sel)
	elapsed := c.now().Sub(start)

	rootName := ""
	if root != nil {
		rootName = root.Name()
	}
	c.metrics.ObserveCompile(rootName, elapsed, err)

	entry := c.log.WithFields(logrus.Fields{
		"compile_id": id,
		"root":       rootName,
		"duration":   elapsed,
	})
	if err != nil {
		entry.WithError(err).Debug("compile failed")
		return nil, err
	}

	fingerprint, err := g.Fingerprint()
	if err != nil {
		return nil, err
	}

	c.metrics.ObserveGraph(g.NumVertices(), g.NumEdges())
	entry.WithFields(logrus.Fields{
		"vertices": g.NumVertices(),
		"edges":    g.NumEdges(),
	}).Debug("compiled")

	return &Result{
		ID:          id,
		Graph:       g,
		Fingerprint: fingerprint,
		Portability: queryir.Validate(g),
		Duration:    elapsed,
	}, nil
}

func (c *Compiler) compile(root *shape.NodeShape, sel Selection) (*queryir.Graph, error) {
	if root == nil {
		return nil, ir.NewSchemaError("", "", "no root shape")
	}
	if registered, ok := c.reg.ByID(root.ID()); !ok || registered != root {
		return nil, ir.NewSchemaError(root.Name(), "", "shape %s is not registered", root.ID())
	}

	st := &compilation{c: c, b: queryir.NewBuilder(), constrained: make(map[queryir.VertexID]bool)}
	rootID := st.b.AddRoot(root)
	if err := st.vertex(rootID, root, &sel, NewCycleGuard()); err != nil {
		return nil, err
	}
	for _, key := range sel.Sort {
		if err := st.sortKey(rootID, root, key); err != nil {
			return nil, err
		}
	}
	return st.b.Freeze(rootID), nil
}

// compilation is the state of one Compile call.
type compilation struct {
	c           *Compiler
	b           *queryir.Builder
	constrained map[queryir.VertexID]bool
}

// vertex fills vertice v of shape node from sel: projections, filters and
// shape constraints, in that order.
func (st *compilation) vertex(v queryir.VertexID, node *shape.NodeShape, sel *Selection, guard *CycleGuard) error {
	if sel == nil {
		sel = &Selection{}
	}
	if len(sel.Filters) > 0 {
		st.b.Vertex(v).Join = sel.Join
	}

	fields := sel.Fields
	if sel.All {
		fields = append(slices.Clone(fields), expandAll(node, st.c.reg)...)
	}
	for _, f := range fields {
		if err := st.field(v, node, f, guard); err != nil {
			return err
		}
	}
	if err := st.filters(v, node, sel.Filters); err != nil {
		return err
	}
	return st.constraints(v, node)
}

// expandAll selects every field of node. Reference fields with a known
// target shape are expanded recursively.
func expandAll(node *shape.NodeShape, reg *shape.Registry) []Field {
	props := node.Properties()
	fields := make([]Field, 0, len(props))
	for _, prop := range props {
		f := Field{Name: prop.Name()}
		if _, ok := prop.TargetShape(reg); ok {
			f.Selection = &Selection{All: true}
		}
		fields = append(fields, f)
	}
	return fields
}

func (st *compilation) resolve(node *shape.NodeShape, name string) (*shape.PropertyShape, error) {
	prop, ok := node.Property(name)
	if !ok {
		return nil, ir.NewSchemaError(node.Name(), name, "unknown field %q", name)
	}
	return prop, nil
}

// field compiles one projection.
func (st *compilation) field(v queryir.VertexID, node *shape.NodeShape, f Field, guard *CycleGuard) error {
	prop, err := st.resolve(node, f.Name)
	if err != nil {
		return err
	}

	if f.Aggregate != 0 {
		if f.Selection.HasSubfields() || len(f.Filters) > 0 {
			return ir.NewUnsupportedOperation(node.Name(), f.Name,
				"%s aggregate takes no subfields or filters", f.Aggregate)
		}
		id, err := st.newEdge(v, prop, queryir.PathSelectedField)
		if err != nil {
			return err
		}
		st.b.Edge(id).Aggregate = &queryir.Aggregate{Kind: f.Aggregate, Variable: st.b.NewVar()}
		return nil
	}

	id, err := st.edgeFor(v, prop, queryir.PathSelectedField)
	if err != nil {
		return err
	}
	if !f.Selection.HasSubfields() && len(f.Filters) == 0 {
		return nil
	}

	if !prop.IsReference() {
		return ir.NewUnsupportedOperation(node.Name(), f.Name, "literal field has no subfields")
	}
	target, ok := prop.TargetShape(st.c.reg)
	if !ok {
		return ir.NewSchemaError(node.Name(), f.Name, "no node shape for class %q", prop.Class())
	}

	sel := Selection{}
	if f.Selection != nil {
		sel = *f.Selection
	}
	sel.Filters = append(slices.Clone(sel.Filters), f.Filters...)

	if obj := st.b.Edge(id).Object; obj != queryir.NoVertex {
		return st.vertex(obj, target, &sel, guard)
	}

	g := guard
	if st.c.scope == GuardBranch {
		g = guard.Clone()
	}
	if g.MarkAndCheck(node, prop) {
		st.c.log.WithFields(logrus.Fields{
			"shape": node.Name(),
			"field": prop.Name(),
		}).Debug("cycle guard stopped expansion")
		st.c.metrics.ObserveGuardHit(node.Name(), prop.Name())
		if len(sel.Filters) == 0 {
			return nil
		}
		// The projection stays a leaf; its filters restrict v through a
		// filter-only child whose depth the request bounds.
		child, err := st.nestedFilter(v, prop, target, sel.Filters)
		if err != nil {
			return err
		}
		st.b.Vertex(child).Join = sel.Join
		return nil
	}

	child := st.b.AddChild(id, target)
	return st.vertex(child, target, &sel, g)
}

// filters attaches specs to v. Direct filters bind to the current
// vertice; nested filters build a child vertice and bind there.
func (st *compilation) filters(v queryir.VertexID, node *shape.NodeShape, specs []FilterSpec) error {
	for _, spec := range specs {
		prop, err := st.resolve(node, spec.Field)
		if err != nil {
			return err
		}
		if len(spec.Values) == 0 && len(spec.Nested) == 0 {
			return ir.NewUnsupportedOperation(node.Name(), spec.Field, "filter has no values")
		}

		if len(spec.Values) > 0 {
			if err := st.valueFilter(v, node, prop, spec); err != nil {
				return err
			}
		}

		if len(spec.Nested) > 0 {
			if !prop.IsReference() {
				return ir.NewUnsupportedOperation(node.Name(), spec.Field, "nested filter on a literal field")
			}
			target, ok := prop.TargetShape(st.c.reg)
			if !ok {
				return ir.NewSchemaError(node.Name(), spec.Field, "no node shape for class %q", prop.Class())
			}
			if _, err := st.nestedFilter(v, prop, target, spec.Nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// nestedFilter adds a hidden, required edge from v through prop whose
// child vertice carries specs.
func (st *compilation) nestedFilter(v queryir.VertexID, prop *shape.PropertyShape, target *shape.NodeShape, specs []FilterSpec) (queryir.VertexID, error) {
	id, err := st.edgeFor(v, prop, queryir.PathNestedFilter)
	if err != nil {
		return 0, err
	}
	child := st.b.AddChild(id, target)
	if err := st.filters(child, target, specs); err != nil {
		return 0, err
	}
	return child, st.constraints(child, target)
}

func (st *compilation) valueFilter(v queryir.VertexID, node *shape.NodeShape, prop *shape.PropertyShape, spec FilterSpec) error {
	id, err := st.edgeFor(v, prop, queryir.PathFilter)
	if err != nil {
		return err
	}
	variable := st.b.Edge(id).Variable

	operands := make([]queryir.Operand, 0, len(spec.Values))
	exprs := make([]queryir.Expression, 0, len(spec.Values))
	for _, value := range spec.Values {
		operand, err := queryir.OperandFor(node, spec.Field, value)
		if err != nil {
			return err
		}
		expr, err := queryir.ExpressionFor(variable, spec.Operator, operand)
		if err != nil {
			return err
		}
		operands = append(operands, operand)
		exprs = append(exprs, expr)
	}
	expr, err := queryir.Join(queryir.JoinOr, exprs)
	if err != nil {
		return err
	}

	st.b.AddFilter(v, queryir.Filter{
		Variable: variable,
		Operator: spec.Operator,
		Operands: operands,
		Expr:     expr,
	})
	return nil
}

// constraints adds the shape-derived restrictions of node to v: the
// target class and every hasValue list. Each vertice gets them once.
func (st *compilation) constraints(v queryir.VertexID, node *shape.NodeShape) error {
	if st.constrained[v] {
		return nil
	}
	st.constrained[v] = true

	if class := node.TargetClass(); class != "" {
		st.b.AddConstraint(v, queryir.Constraint{
			Variable:  st.b.Vertex(v).Subject,
			Predicate: queryir.RDFType,
			Values:    []queryir.Operand{queryir.Reference{IRI: class}},
		})
	}

	for _, prop := range node.Properties() {
		values := prop.HasValue()
		if len(values) == 0 {
			continue
		}
		id, err := st.edgeFor(v, prop, queryir.PathConstraint)
		if err != nil {
			return err
		}
		operands := make([]queryir.Operand, len(values))
		for i, value := range values {
			if prop.IsReference() {
				operands[i] = queryir.Reference{IRI: value}
			} else {
				operands[i] = queryir.Literal{Lexical: value, Datatype: prop.Datatype()}
			}
		}
		st.b.AddConstraint(v, queryir.Constraint{
			Variable: st.b.Edge(id).Variable,
			Values:   operands,
		})
	}
	return nil
}

// sortKey resolves a sort path from the root and records the ordering on
// the root vertice.
func (st *compilation) sortKey(root queryir.VertexID, node *shape.NodeShape, key SortKey) error {
	if len(key.Path) == 0 {
		return ir.NewUnsupportedOperation(node.Name(), "", "empty sort path")
	}

	v := root
	for i, name := range key.Path {
		prop, err := st.resolve(node, name)
		if err != nil {
			return err
		}
		id, err := st.edgeFor(v, prop, queryir.PathSort)
		if err != nil {
			return err
		}
		if i == len(key.Path)-1 {
			st.b.AddOrderBy(root, queryir.OrderBy{
				Variable:   st.b.Edge(id).Variable,
				Descending: key.Descending,
			})
			return nil
		}

		if !prop.IsReference() {
			return ir.NewUnsupportedOperation(node.Name(), name, "cannot sort through a literal field")
		}
		target, ok := prop.TargetShape(st.c.reg)
		if !ok {
			return ir.NewSchemaError(node.Name(), name, "no node shape for class %q", prop.Class())
		}
		if obj := st.b.Edge(id).Object; obj != queryir.NoVertex {
			v = obj
		} else {
			v = st.b.AddChild(id, target)
			if err := st.constraints(v, target); err != nil {
				return err
			}
		}
		node = target
	}
	return nil
}

// edgeFor returns the edge of v realizing prop for a use of type pt,
// reusing an existing edge when pt allows it.
func (st *compilation) edgeFor(v queryir.VertexID, prop *shape.PropertyShape, pt queryir.PathType) (queryir.EdgeID, error) {
	if pt.Reusable() {
		if id, ok := st.b.FindEdge(v, prop); ok {
			if pt.Visible() {
				st.b.Edge(id).Visible = true
			}
			return id, nil
		}
	}
	return st.newEdge(v, prop, pt)
}

func (st *compilation) newEdge(v queryir.VertexID, prop *shape.PropertyShape, pt queryir.PathType) (queryir.EdgeID, error) {
	if limit := st.c.maxEdges; limit > 0 {
		if _, edges := st.b.Stats(); edges >= limit {
			return 0, ir.NewUnsupportedOperation(st.b.Vertex(v).Shape.Name(), prop.Name(),
				"query graph exceeds %d edges", limit)
		}
	}

	optional := !pt.Required()
	if n, ok := prop.MinCount(); ok {
		optional = n == 0
	}

	e := queryir.Edge{
		Property: prop,
		Path:     prop.Path(),
		Optional: optional,
		Visible:  pt.Visible(),
		Type:     pt,
	}
	if !path.IsSimple(prop.Path()) {
		e.OutputPath = path.Predicate{IRI: prop.ID()}
	}
	return st.b.AddEdge(v, e), nil
}
