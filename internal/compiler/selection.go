package compiler

import (
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/queryir"
)

// Selection is the request for one vertice: projected fields, filters,
// sort keys and how the filters combine.
type Selection struct {
	Fields  []Field
	Filters []FilterSpec

	// Sort keys are only honored on the root selection.
	Sort []SortKey

	// Join combines the filters of this vertice (default AND).
	Join queryir.JoinType

	// All selects every field of the shape, recursively for reference
	// fields. The cycle guard bounds the expansion.
	All bool
}

// Field is one projected field.
type Field struct {
	Name string

	// Alias is the response key chosen by the client. It does not affect
	// the graph.
	Alias string

	// Selection is the sub-selection of a reference field.
	Selection *Selection

	// Filters restrict the field's child vertice.
	Filters []FilterSpec

	// Aggregate, when non-zero, replaces the projection by an aggregate
	// over the field's values.
	Aggregate queryir.AggregateKind
}

// FilterSpec is one filter triple: field, operator and values. Several
// values are OR-ed. Nested filters apply to a reference field's target.
type FilterSpec struct {
	Field    string
	Operator queryir.Operator
	Values   []ir.IRValue
	Nested   []FilterSpec
}

// SortKey orders results by a field reached through Path (field names
// from the root).
type SortKey struct {
	Path       []string
	Descending bool
}

// HasSubfields reports whether the selection asks for anything.
func (s *Selection) HasSubfields() bool {
	return s != nil && (s.All || len(s.Fields) > 0 || len(s.Filters) > 0)
}
