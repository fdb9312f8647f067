package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/testutil"
)

func TestCycleGuard_MarkAndCheck(t *testing.T) {
	reg := testutil.CyclicRegistry()
	address := testutil.MustShape(reg, "Address")
	geometry := testutil.MustShape(reg, "Geometry")
	prop := testutil.MustProperty(geometry, "geometry")

	g := NewCycleGuard()
	assert.False(t, g.MarkAndCheck(geometry, prop), "first encounter")
	assert.True(t, g.MarkAndCheck(geometry, prop), "second encounter")
	assert.True(t, g.MarkAndCheck(geometry, prop), "every later encounter")

	// Same property shape on another node shape is a distinct pair.
	assert.False(t, g.MarkAndCheck(address, testutil.MustProperty(address, "geometry")))
	assert.Equal(t, 2, g.Len())
}

func TestCycleGuard_Clone(t *testing.T) {
	reg := testutil.CyclicRegistry()
	person := testutil.MustShape(reg, "Person")
	knows := testutil.MustProperty(person, "knows")
	name := testutil.MustProperty(person, "name")

	g := NewCycleGuard()
	require.False(t, g.MarkAndCheck(person, knows))

	clone := g.Clone()
	assert.True(t, clone.MarkAndCheck(person, knows), "clone keeps existing marks")
	assert.False(t, clone.MarkAndCheck(person, name))

	assert.False(t, g.MarkAndCheck(person, name), "marks on the clone do not leak back")
}

func TestParseGuardScope(t *testing.T) {
	tests := []struct {
		in   string
		want GuardScope
		ok   bool
	}{
		{"", GuardCompile, true},
		{"compile", GuardCompile, true},
		{"branch", GuardBranch, true},
		{"ancestors", GuardCompile, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGuardScope(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "branch", GuardBranch.String())
	assert.Equal(t, "compile", GuardCompile.String())
}
