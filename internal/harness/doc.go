// Package harness runs conformance scenarios against the compiler.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: building_by_identifier
//	description: "Filtered projection with a nested reference"
//	schema: |
//	  prefixes: ex: "http://example.org/def#"
//	  shape: Building: { target: "ex:Building", property: { ... } }
//	query: |
//	  { building(filter: {identifier: {eq: "123"}}) { identifier } }
//	variables: { id: "123" }
//	backend: sparql
//	assertions:
//	  - type: query_contains
//	    text: 'FILTER(?x1 = "123")'
//	  - type: graph_size
//	    vertices: 2
//	    edges: 3
//
// schema holds inline CUE; schema_dir names a directory of CUE files
// relative to the scenario file instead. expect.error names the error
// kind the scenario must fail with, and expect.code optionally pins the
// error code. A scenario with expect has no assertions:
//
//	expect:
//	  error: UNSUPPORTED_OPERATION
//	  code: E202
//
// # Assertion Types
//
//   - query_contains: the query text contains text
//   - query_order: every entry of texts appears, in order
//   - graph_size: the query graph has the given vertex and/or edge count
//   - params: the SQL parameters equal params
//
// Assertions apply to the output for field, or the first output when
// field is empty.
//
// # Deterministic Testing
//
// Every scenario compiles with a fixed compile id (compile_id, default
// "test-compile-default") so outputs are byte-identical across runs and
// can be compared with golden files.
package harness
