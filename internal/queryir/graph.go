package queryir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/shape"
)

// RDFType is the rdf:type predicate used for target class constraints.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Var is a query variable name without the leading "?".
type Var string

func (v Var) String() string { return string(v) }

// PathType records why an edge was created.
// Each type carries three fixed flags: reusable, visible and required.
type PathType int

const (
	PathSelectedField PathType = iota
	PathFilter
	PathNestedFilter
	PathSort
	PathConstraint
)

type pathTypeFlags struct {
	name     string
	reusable bool
	visible  bool
	required bool
}

var pathTypes = [...]pathTypeFlags{
	PathSelectedField: {"SelectedField", true, true, false},
	PathFilter:        {"Filter", true, false, true},
	PathNestedFilter:  {"NestedFilter", false, false, true},
	PathSort:          {"Sort", true, false, false},
	PathConstraint:    {"Constraint", true, true, true},
}

func (p PathType) flags() pathTypeFlags {
	if p < 0 || int(p) >= len(pathTypes) {
		return pathTypeFlags{name: fmt.Sprintf("PathType(%d)", int(p))}
	}
	return pathTypes[p]
}

// Reusable reports whether an existing edge for the same property may
// serve this use.
func (p PathType) Reusable() bool { return p.flags().reusable }

// Visible reports whether the edge pattern appears in the output.
func (p PathType) Visible() bool { return p.flags().visible }

// Required reports whether a new edge of this type excludes rows without a match.
func (p PathType) Required() bool { return p.flags().required }

func (p PathType) String() string { return p.flags().name }

// VertexID addresses a vertice in a graph arena.
type VertexID int

// EdgeID addresses an edge in a graph arena.
type EdgeID int

// NoVertex marks a leaf edge.
const NoVertex VertexID = -1

// AggregateKind is an aggregate function.
type AggregateKind int

const (
	AggCount AggregateKind = iota + 1
	AggSum
	AggMin
	AggMax
	AggAvg
)

var aggregateNames = map[AggregateKind]string{
	AggCount: "COUNT",
	AggSum:   "SUM",
	AggMin:   "MIN",
	AggMax:   "MAX",
	AggAvg:   "AVG",
}

func (a AggregateKind) String() string {
	if name, ok := aggregateNames[a]; ok {
		return name
	}
	return fmt.Sprintf("AggregateKind(%d)", int(a))
}

// ParseAggregate maps an aggregate name (any case) to its kind.
func ParseAggregate(name string) (AggregateKind, error) {
	upper := strings.ToUpper(name)
	for kind, n := range aggregateNames {
		if n == upper {
			return kind, nil
		}
	}
	return 0, ir.NewUnsupportedOperation("", "", "unknown aggregate %q", name)
}

// Aggregate binds the result of an aggregate over an edge's object.
type Aggregate struct {
	Kind     AggregateKind
	Variable Var // variable holding the aggregate result
}

// Edge is a directed traversal from its subject vertice.
type Edge struct {
	ID       EdgeID
	Subject  VertexID
	Property *shape.PropertyShape

	// Path is the traversal path. OutputPath, when set, replaces it in
	// output patterns.
	Path       path.PropertyPath
	OutputPath path.PropertyPath

	Optional bool
	Visible  bool
	Type     PathType

	// Object is the child vertice, or NoVertex for a leaf.
	Object VertexID

	// Variable is bound to the edge's object. For non-leaf edges it is the
	// child vertice's subject.
	Variable Var

	Aggregate *Aggregate
}

// IsLeaf reports whether the edge has no child vertice.
func (e *Edge) IsLeaf() bool { return e.Object == NoVertex }

// Output returns the path used in output patterns.
func (e *Edge) Output() path.PropertyPath {
	if e.OutputPath != nil {
		return e.OutputPath
	}
	return e.Path
}

// Filter is one filter attached to a vertice: an operator applied to
// a variable with one or more operands. Expr is the OR of the individual
// comparisons.
type Filter struct {
	Variable Var
	Operator Operator
	Operands []Operand
	Expr     Expression
}

// Constraint restricts a variable independently of the client request.
//
// With Predicate set it is the triple pattern (Variable Predicate Value)
// for each value; otherwise Variable must take one of Values.
type Constraint struct {
	Variable  Var
	Predicate string
	Values    []Operand
}

// OrderBy is one sort key.
type OrderBy struct {
	Variable   Var
	Descending bool
}

// Vertice is one level of the query graph.
type Vertice struct {
	ID          VertexID
	Shape       *shape.NodeShape
	Subject     Var
	Edges       []EdgeID
	Filters     []Filter
	Constraints []Constraint
	Orderings   []OrderBy

	// Join combines the vertice's filters.
	Join JoinType
}

// Builder is the mutable arena used while compiling one request.
// It is owned by a single goroutine and unusable after Freeze.
type Builder struct {
	vertices []Vertice
	edges    []Edge
	nextVar  int
	frozen   bool
}

// NewBuilder returns an empty arena.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) checkOpen() {
	if b.frozen {
		panic("queryir: builder used after Freeze")
	}
}

// NewVar returns a fresh variable, unique within this builder.
func (b *Builder) NewVar() Var {
	b.checkOpen()
	v := Var(fmt.Sprintf("x%d", b.nextVar))
	b.nextVar++
	return v
}

// AddRoot creates a vertice with a fresh subject variable.
func (b *Builder) AddRoot(s *shape.NodeShape) VertexID {
	return b.addVertex(s, b.NewVar())
}

func (b *Builder) addVertex(s *shape.NodeShape, subject Var) VertexID {
	b.checkOpen()
	id := VertexID(len(b.vertices))
	b.vertices = append(b.vertices, Vertice{ID: id, Shape: s, Subject: subject})
	return id
}

// AddEdge appends e to vertice v. ID, Subject, Object and Variable are
// assigned by the builder.
func (b *Builder) AddEdge(v VertexID, e Edge) EdgeID {
	b.checkOpen()
	id := EdgeID(len(b.edges))
	e.ID = id
	e.Subject = v
	e.Object = NoVertex
	e.Variable = b.NewVar()
	b.edges = append(b.edges, e)
	b.vertices[v].Edges = append(b.vertices[v].Edges, id)
	return id
}

// AddChild creates the object vertice of edge e. The child's subject is
// the edge variable.
func (b *Builder) AddChild(e EdgeID, s *shape.NodeShape) VertexID {
	b.checkOpen()
	child := b.addVertex(s, b.edges[e].Variable)
	b.edges[e].Object = child
	return child
}

// FindEdge returns the first edge of v realizing prop that is eligible for
// reuse: edges carrying an aggregate are never shared.
func (b *Builder) FindEdge(v VertexID, prop *shape.PropertyShape) (EdgeID, bool) {
	for _, id := range b.vertices[v].Edges {
		e := &b.edges[id]
		if e.Property.ID() == prop.ID() && e.Aggregate == nil && e.Type.Reusable() {
			return id, true
		}
	}
	return 0, false
}

// Edge returns the edge for mutation during compilation.
func (b *Builder) Edge(id EdgeID) *Edge {
	b.checkOpen()
	return &b.edges[id]
}

// Vertex returns the vertice for mutation during compilation.
func (b *Builder) Vertex(id VertexID) *Vertice {
	b.checkOpen()
	return &b.vertices[id]
}

// AddFilter attaches a filter clause to v.
func (b *Builder) AddFilter(v VertexID, f Filter) {
	b.checkOpen()
	b.vertices[v].Filters = append(b.vertices[v].Filters, f)
}

// AddConstraint attaches a constraint to v.
func (b *Builder) AddConstraint(v VertexID, c Constraint) {
	b.checkOpen()
	b.vertices[v].Constraints = append(b.vertices[v].Constraints, c)
}

// AddOrderBy appends a sort key to v.
func (b *Builder) AddOrderBy(v VertexID, o OrderBy) {
	b.checkOpen()
	b.vertices[v].Orderings = append(b.vertices[v].Orderings, o)
}

// Stats returns the number of vertices and edges created so far.
func (b *Builder) Stats() (vertices, edges int) {
	return len(b.vertices), len(b.edges)
}

// Freeze orders every vertice's edges with required edges before optional
// ones (stable) and returns the immutable graph rooted at root.
func (b *Builder) Freeze(root VertexID) *Graph {
	b.checkOpen()
	b.frozen = true

	for i := range b.vertices {
		slices.SortStableFunc(b.vertices[i].Edges, func(x, y EdgeID) int {
			return optionalRank(b.edges[x]) - optionalRank(b.edges[y])
		})
	}

	g := &Graph{root: root, vertices: b.vertices, edges: b.edges}
	b.vertices, b.edges = nil, nil
	return g
}

func optionalRank(e Edge) int {
	if e.Optional {
		return 1
	}
	return 0
}

// Graph is a frozen query graph. Accessors return copies.
type Graph struct {
	root     VertexID
	vertices []Vertice
	edges    []Edge
}

// RootID returns the root vertice id.
func (g *Graph) RootID() VertexID { return g.root }

// Root returns the root vertice.
func (g *Graph) Root() Vertice { return g.Vertex(g.root) }

// Vertex returns a copy of vertice id.
func (g *Graph) Vertex(id VertexID) Vertice {
	v := g.vertices[id]
	v.Edges = slices.Clone(v.Edges)
	v.Filters = slices.Clone(v.Filters)
	v.Constraints = slices.Clone(v.Constraints)
	v.Orderings = slices.Clone(v.Orderings)
	return v
}

// Edge returns a copy of edge id.
func (g *Graph) Edge(id EdgeID) Edge {
	e := g.edges[id]
	if e.Aggregate != nil {
		agg := *e.Aggregate
		e.Aggregate = &agg
	}
	return e
}

// Edges returns the ordered edges of vertice id.
func (g *Graph) Edges(id VertexID) []Edge {
	ids := g.vertices[id].Edges
	out := make([]Edge, len(ids))
	for i, eid := range ids {
		out[i] = g.Edge(eid)
	}
	return out
}

// NumVertices returns the vertice count.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Variables returns every subject and edge variable in creation order.
func (g *Graph) Variables() []Var {
	seen := make(map[Var]bool)
	var out []Var
	add := func(v Var) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(g.vertices[g.root].Subject)
	for _, e := range g.edges {
		add(e.Variable)
		if e.Aggregate != nil {
			add(e.Aggregate.Variable)
		}
	}
	return out
}

// Walk visits vertices depth first from the root in edge order.
func (g *Graph) Walk(fn func(v Vertice, depth int)) {
	var visit func(id VertexID, depth int)
	visit = func(id VertexID, depth int) {
		fn(g.Vertex(id), depth)
		for _, eid := range g.vertices[id].Edges {
			if obj := g.edges[eid].Object; obj != NoVertex {
				visit(obj, depth+1)
			}
		}
	}
	visit(g.root, 0)
}
