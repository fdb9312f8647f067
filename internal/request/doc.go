// Package request translates client GraphQL documents into compiler
// selections.
//
// Every top-level field of the executed operation becomes one Request. The
// field name selects the root node shape (building → Building); its
// sub-selection, arguments and directives become a compiler.Selection:
//
//	query {
//	  building(filter: {identifier: {eq: "123"}}, sort: [{field: "name", order: DESC}]) {
//	    identifier
//	    location(filter: {wkt: {neq: ""}}) { wkt }
//	    parts(aggregate: COUNT)
//	    address @expand
//	  }
//	}
//
// Arguments:
//
//	filter     object of field → condition. A condition is a value (eq), or
//	           an object of operators (eq, neq, ne, lt, lte, gt, gte, in).
//	           Non-operator keys on a reference field filter its target.
//	sort       list of {field: "a.b", order: ASC|DESC}; root fields only.
//	aggregate  COUNT, SUM, MIN, MAX or AVG; non-root fields only.
//	join       AND (default) or OR; combines the filters of one level.
//
// Directives: @skip(if:), @include(if:) and @expand, which selects every
// field of the target shape recursively.
//
// Fragment spreads and inline fragments are inlined. A type condition must
// name the node shape it is applied to.
package request
