// Package querysparql renders query graphs as SPARQL 1.1 CONSTRUCT queries.
//
// The template holds the output patterns of visible edges, reached through
// visible edges only. The WHERE clause holds every edge: required edges
// as plain triple patterns, optional edges in OPTIONAL groups that also
// enclose the edge's child vertice. Aggregates become grouped sub-selects.
//
// Filters of all vertices are rendered as top-level FILTER clauses, so a
// filter on a variable bound inside an OPTIONAL group still excludes rows
// where the variable is unbound. IRIs are always written in full.
package querysparql
