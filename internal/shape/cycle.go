package shape

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning reports a set of node shapes reachable from themselves
// through reference fields.
//
// Cycles are warnings, not errors: self-referential schemas are legal and
// the compiler's cycle guard bounds every compilation over them.
type CycleWarning struct {
	Path    []string `json:"path"`    // Shape names: ["Person", "Person"]
	Fields  []string `json:"fields"`  // Fields followed along Path
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles finds cyclic regions of the shape graph.
//
// Nodes are node shapes and edges are reference fields whose target class
// resolves to a registered shape. Tarjan's algorithm finds the strongly
// connected components; every component with more than one shape, or a
// single shape with a self-loop, is reported. Shapes are visited in
// registration order so the result is deterministic.
func AnalyzeCycles(reg *Registry) []CycleWarning {
	if reg == nil || reg.Len() == 0 {
		return []CycleWarning{}
	}

	graph := buildShapeGraph(reg)
	sccs := tarjanSCC(reg, graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	return warnings
}

type shapeEdge struct {
	to    string
	field string
}

// shapeGraph maps shape name → outgoing reference fields.
type shapeGraph map[string][]shapeEdge

func buildShapeGraph(reg *Registry) shapeGraph {
	graph := make(shapeGraph, reg.Len())
	for _, s := range reg.shapes {
		graph[s.Name()] = []shapeEdge{}
		for _, p := range s.order {
			target, ok := p.TargetShape(reg)
			if !ok {
				continue
			}
			graph[s.Name()] = append(graph[s.Name()], shapeEdge{to: target.Name(), field: p.Name()})
		}
	}
	return graph
}

func hasSelfLoop(node string, graph shapeGraph) bool {
	for _, e := range graph[node] {
		if e.to == node {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of graph.
// Members of each component are sorted by registration order.
func tarjanSCC(reg *Registry, graph shapeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range graph[v] {
			if _, visited := indices[e.to]; !visited {
				strongConnect(e.to)
				lowlink[v] = min(lowlink[v], lowlink[e.to])
			} else if onStack[e.to] {
				lowlink[v] = min(lowlink[v], indices[e.to])
			}
		}

		// Root of a component: pop it
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	position := make(map[string]int, reg.Len())
	for i, s := range reg.shapes {
		position[s.Name()] = i
	}
	for _, s := range reg.shapes {
		if _, visited := indices[s.Name()]; !visited {
			strongConnect(s.Name())
		}
	}

	for _, scc := range sccs {
		slices.SortFunc(scc, func(a, b string) int { return position[a] - position[b] })
	}
	slices.SortFunc(sccs, func(a, b []string) int { return position[a[0]] - position[b[0]] })
	return sccs
}

func sccToWarning(scc []string, graph shapeGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		var field string
		for _, e := range graph[name] {
			if e.to == name {
				field = e.field
				break
			}
		}
		return CycleWarning{
			Path:    []string{name, name},
			Fields:  []string{field},
			Message: fmt.Sprintf("Self-referencing shape: %s.%s → %s", name, field, name),
			Level:   "warning",
		}
	}

	path, fields := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Fields:  fields,
		Message: fmt.Sprintf("Shape cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks from the first member through other members
// until it returns to the start.
func reconstructCyclePath(scc []string, graph shapeGraph) ([]string, []string) {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	var fields []string
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next shapeEdge
		found := false
		for _, e := range graph[current] {
			if e.to == current {
				continue
			}
			if members[e.to] && (!visited[e.to] || e.to == start) {
				next, found = e, true
				break
			}
		}
		if !found {
			break
		}

		path = append(path, next.to)
		fields = append(fields, next.field)
		if next.to == start {
			break
		}
		current = next.to
	}
	return path, fields
}
