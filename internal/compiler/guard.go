package compiler

import (
	"maps"

	"github.com/roach88/graphgate/internal/shape"
)

// GuardScope selects how far a cycle guard mark reaches.
type GuardScope int

const (
	// GuardCompile blocks a (shape, field) pair everywhere in the compile
	// once it has been expanded.
	GuardCompile GuardScope = iota

	// GuardBranch blocks a pair only below the branch that expanded it.
	// The guard is cloned on every recursion.
	GuardBranch
)

// String returns "compile" or "branch".
func (s GuardScope) String() string {
	if s == GuardBranch {
		return "branch"
	}
	return "compile"
}

// ParseGuardScope parses "compile" or "branch".
func ParseGuardScope(s string) (GuardScope, bool) {
	switch s {
	case "compile", "":
		return GuardCompile, true
	case "branch":
		return GuardBranch, true
	default:
		return GuardCompile, false
	}
}

// CycleGuard records the (node shape, property shape) pairs already
// expanded during one compilation. It is never shared between compiles.
//
// Identity is the pair of shape IRIs, so a property shape shared by two
// node shapes forms two distinct pairs.
type CycleGuard struct {
	seen map[guardKey]bool
}

type guardKey struct {
	shape string
	field string
}

// NewCycleGuard creates an empty guard.
func NewCycleGuard() *CycleGuard {
	return &CycleGuard{seen: make(map[guardKey]bool)}
}

// MarkAndCheck records the pair and reports whether it was already seen.
// The first call for a pair returns false; every later call returns true.
func (g *CycleGuard) MarkAndCheck(node *shape.NodeShape, prop *shape.PropertyShape) bool {
	key := guardKey{shape: node.ID(), field: prop.ID()}
	if g.seen[key] {
		return true
	}
	g.seen[key] = true
	return false
}

// Clone returns an independent copy for branch-scoped recursion.
func (g *CycleGuard) Clone() *CycleGuard {
	return &CycleGuard{seen: maps.Clone(g.seen)}
}

// Len returns the number of recorded pairs.
func (g *CycleGuard) Len() int { return len(g.seen) }
