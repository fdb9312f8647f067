// Package shape implements the shape model: one NodeShape per object type
// and one PropertyShape per field.
//
// Shapes are validated once at construction and are immutable afterwards.
// A Registry built at startup is shared read-only by every compilation and
// is safe for concurrent use without locking.
//
// Inconsistent definitions fail with a CONSTRAINT_VIOLATION carrying a
// stable code:
//
//	E120  property id or name is empty
//	E121  property path is invalid
//	E122  literal property without datatype
//	E123  kind conflict (reference with datatype, literal with class)
//	E124  minCount greater than maxCount
//	E125  minCount negative or maxCount below 1
//	E126  duplicate field name on a node shape
//	E127  duplicate node shape id, name or target class in a registry
//	E128  node shape id or name is empty
package shape
