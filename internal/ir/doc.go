// Package ir provides the foundational value and error types for graphgate.
//
// This package contains no compiler logic. Every other internal package may
// import ir; ir imports nothing internal. That keeps the request value model
// and the error taxonomy at the bottom of the dependency graph.
//
// Key design constraints:
//   - NO float types anywhere - decimals travel as lexical strings (IRDecimal)
//   - Every error that crosses a package boundary is an *Error with a Kind
//   - Canonical JSON (MarshalCanonical) is the only encoding used for fingerprints
package ir
