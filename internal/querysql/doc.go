// Package querysql renders query graphs as parameterized SQL for SQLite.
//
// The relational mapping is fixed: one table per target class, named by the
// local name of the class IRI, with primary key id; one column per
// single-hop predicate, named by the predicate's local name. Reference
// columns hold the id of the referenced row. A forward reference edge joins
// child.id = parent.<col>; an inverse edge joins child.<col> = parent.id.
//
// Graphs that need more than this mapping (path sequences, multi-valued
// literals, non-COUNT aggregates) are rejected with UNSUPPORTED_OPERATION;
// queryir.Validate reports the same conditions as warnings.
package querysql
