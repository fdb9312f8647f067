// Package pipeline runs a client document through translation,
// compilation and serialization for one backend.
package pipeline

import (
	"fmt"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/queryir"
	"github.com/roach88/graphgate/internal/querysparql"
	"github.com/roach88/graphgate/internal/querysql"
	"github.com/roach88/graphgate/internal/request"
)

// Backend names a target query language.
type Backend string

const (
	BackendSPARQL Backend = "sparql"
	BackendSQL    Backend = "sql"
)

// ParseBackend parses a backend name. The empty string selects SPARQL.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendSPARQL:
		return BackendSPARQL, nil
	case BackendSQL:
		return BackendSQL, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want sparql or sql)", s)
	}
}

// Output is the compiled query for one top-level field.
type Output struct {
	Field       string   `json:"field"`
	CompileID   string   `json:"compile_id"`
	Fingerprint string   `json:"fingerprint"`
	Backend     Backend  `json:"backend"`
	Query       string   `json:"query"`
	Params      []any    `json:"params,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Vertices    int      `json:"vertices"`
	Edges       int      `json:"edges"`
}

// Run translates query, compiles every top-level field and serializes
// each graph for backend. The first failure aborts the run.
func Run(c *compiler.Compiler, query, operationName string, vars ir.IRObject, backend Backend) ([]Output, error) {
	reqs, err := request.TranslateOperation(c.Registry(), query, operationName, vars)
	if err != nil {
		return nil, err
	}

	out := make([]Output, 0, len(reqs))
	for _, req := range reqs {
		res, err := c.Run(req.Root, req.Selection)
		if err != nil {
			return nil, err
		}
		text, params, err := Serialize(res.Graph, backend)
		if err != nil {
			return nil, err
		}
		o := Output{
			Field:       req.Field,
			CompileID:   res.ID,
			Fingerprint: res.Fingerprint,
			Backend:     backend,
			Query:       text,
			Params:      params,
			Vertices:    res.Graph.NumVertices(),
			Edges:       res.Graph.NumEdges(),
		}
		if backend == BackendSPARQL {
			o.Warnings = res.Portability.Warnings
		}
		out = append(out, o)
	}
	return out, nil
}

// Serialize renders g for backend. Only SQL has parameters.
func Serialize(g *queryir.Graph, backend Backend) (string, []any, error) {
	switch backend {
	case BackendSPARQL:
		text, err := querysparql.Serialize(g)
		return text, nil, err
	case BackendSQL:
		return querysql.NewSQLCompiler().Compile(g)
	default:
		return "", nil, fmt.Errorf("unknown backend %q", backend)
	}
}
