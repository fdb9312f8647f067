package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRObject_SortedKeys(t *testing.T) {
	obj := IRObject{"zebra": IRInt(1), "alpha": IRInt(2), "beta": IRInt(3)}
	assert.Equal(t, []string{"alpha", "beta", "zebra"}, obj.SortedKeys())
}

func TestIRObject_SortedKeysUTF16(t *testing.T) {
	// U+1F600 encodes as surrogate 0xD83D, which sorts before U+FFFD in UTF-16
	// but after it in UTF-8.
	obj := IRObject{"\uFFFD": IRInt(1), "\U0001F600": IRInt(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFFFD"}, obj.SortedKeys())
}

func TestLexical(t *testing.T) {
	tests := []struct {
		name  string
		input IRValue
		want  string
		ok    bool
	}{
		{"string", IRString("abc"), "abc", true},
		{"int", IRInt(-7), "-7", true},
		{"bool", IRBool(true), "true", true},
		{"decimal", IRDecimal("12.50"), "12.50", true},
		{"null", IRNull{}, "", false},
		{"array", IRArray{IRInt(1)}, "", false},
		{"object", IRObject{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lexical(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "null", TypeName(IRNull{}))
	assert.Equal(t, "string", TypeName(IRString("")))
	assert.Equal(t, "int", TypeName(IRInt(0)))
	assert.Equal(t, "bool", TypeName(IRBool(false)))
	assert.Equal(t, "decimal", TypeName(IRDecimal("1.5")))
	assert.Equal(t, "list", TypeName(IRArray{}))
	assert.Equal(t, "object", TypeName(IRObject{}))
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  IRValue
	}{
		{"nil", nil, IRNull{}},
		{"string", "x", IRString("x")},
		{"bool", true, IRBool(true)},
		{"int", 3, IRInt(3)},
		{"int64", int64(-4), IRInt(-4)},
		{"integral float", float64(42), IRInt(42)},
		{"fractional float", 1.25, IRDecimal("1.25")},
		{"json int", json.Number("17"), IRInt(17)},
		{"json decimal keeps lexical form", json.Number("12.50"), IRDecimal("12.50")},
		{"json exponent", json.Number("1e2"), IRDecimal("100")},
		{"ir passthrough", IRString("y"), IRString("y")},
		{"list", []any{"a", 1}, IRArray{IRString("a"), IRInt(1)}},
		{"map", map[string]any{"k": false}, IRObject{"k": IRBool(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Errors(t *testing.T) {
	_, err := FromAny(math.NaN())
	assert.Error(t, err)

	_, err = FromAny(math.Inf(1))
	assert.Error(t, err)

	_, err = FromAny(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")

	_, err = FromAny([]any{"ok", struct{}{}})
	assert.ErrorContains(t, err, "[1]")

	_, err = FromAny(json.Number("99999999999999999999"))
	assert.ErrorContains(t, err, "out of int64 range")
}

func TestUnmarshalIRValue(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"a":[1,"two",true,null,3.10]}`))
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"a": IRArray{IRInt(1), IRString("two"), IRBool(true), IRNull{}, IRDecimal("3.10")},
	}, v)
}

func TestUnmarshalIRValue_LargeInt(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, IRInt(9007199254740993), v)
}

func TestUnmarshalVariables(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		vars, err := UnmarshalVariables(nil)
		require.NoError(t, err)
		assert.Empty(t, vars)
	})

	t.Run("object", func(t *testing.T) {
		vars, err := UnmarshalVariables([]byte(`{"id":"b1"}`))
		require.NoError(t, err)
		assert.Equal(t, IRObject{"id": IRString("b1")}, vars)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := UnmarshalVariables([]byte(`[1]`))
		assert.ErrorContains(t, err, "must be a JSON object, got list")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := UnmarshalVariables([]byte(`{`))
		assert.ErrorContains(t, err, "decode variables")
	})
}
