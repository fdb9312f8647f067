// Package queryir provides the backend-agnostic query graph produced by the
// compiler and consumed by the serializers.
//
// ARCHITECTURE:
//
//	[request + root shape] → compiler → [Graph] → querysparql
//	                                            → querysql
//
// A Graph is an arena of Vertice and Edge values addressed by VertexID and
// EdgeID. The compiler mutates a Builder while it walks one request, then
// calls Freeze, which orders each vertice's edges (required before
// optional, stable) and hands back an immutable Graph. A Builder is never
// shared between goroutines.
//
// PATH TYPES:
//
// Every edge records why it exists. The path type fixes three flags:
//
//	PathType        reusable  visible  required
//	SelectedField   yes       yes      no
//	Filter          yes       no       yes
//	NestedFilter    no        no       yes
//	Sort            yes       no       no
//	Constraint      yes       yes      yes
//
// SEALED INTERFACES:
//
// Operand (Reference, Literal) and Expression (Comparison, Junction) are
// sealed with marker methods so serializers can switch exhaustively:
//
//	switch e := expr.(type) {
//	case Comparison:
//	    // ?x0 = "123"
//	case Junction:
//	    // (left && right)
//	}
//
// Expression.String renders SPARQL filter syntax; the SQL serializer walks
// the same values and emits parameter placeholders instead.
//
// PORTABILITY:
//
// Validate reports the parts of a graph the relational backend cannot
// express (multi-hop paths, multi-valued literals, non-COUNT aggregates).
package queryir
