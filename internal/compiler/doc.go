// Package compiler turns a client selection over a root node shape into a
// query graph.
//
// One Compile call owns one queryir.Builder and one CycleGuard. It walks
// the selection against the shape registry:
//
//  1. Create the root vertice with a fresh subject variable.
//  2. For every projection, filter, sort hop and shape constraint, resolve
//     the field and either reuse an existing edge (reusable path types) or
//     create one. A field the shape does not declare fails the compile
//     with a SCHEMA_ERROR.
//  3. Recurse into reference fields with sub-selections, asking the cycle
//     guard first. A (shape, field) pair seen before becomes a leaf edge.
//  4. Attach filters to the vertice owning the filtered variable.
//  5. Freeze: order each vertice's edges required first.
//
// Compilation is pure CPU work. The registry is shared read-only; nothing
// else crosses calls, so a Compiler may be used from many goroutines. A
// failed compile returns no graph.
package compiler
