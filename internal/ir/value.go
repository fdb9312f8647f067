package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface over the values a client can pass to the
// compiler (filter arguments, GraphQL variables).
// Only IRNull, IRString, IRInt, IRBool, IRDecimal, IRArray and IRObject
// implement it. There is no float type: decimals keep their lexical form.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an explicit null argument.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRDecimal represents a decimal number in lexical form, e.g. "12.50".
// The compiler never does arithmetic on it; it only copies the lexical form
// into a typed literal.
type IRDecimal string

func (IRDecimal) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string order compares UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Lexical returns the lexical form of a scalar value.
// Returns false for IRNull, IRArray and IRObject, which have no lexical form.
func Lexical(v IRValue) (string, bool) {
	switch val := v.(type) {
	case IRString:
		return string(val), true
	case IRInt:
		return strconv.FormatInt(int64(val), 10), true
	case IRBool:
		return strconv.FormatBool(bool(val)), true
	case IRDecimal:
		return string(val), true
	default:
		return "", false
	}
}

// TypeName returns a short, user-facing name for the value's type.
// Used in TYPE_MISMATCH messages.
func TypeName(v IRValue) string {
	switch v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return "string"
	case IRInt:
		return "int"
	case IRBool:
		return "bool"
	case IRDecimal:
		return "decimal"
	case IRArray:
		return "list"
	case IRObject:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FromAny converts a decoded Go value (JSON, YAML, GraphQL variables) into an IRValue.
//
// Floats are converted to IRDecimal using the shortest lexical form that
// round-trips. NaN and infinities have no decimal form and are rejected.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case float32:
		return decimalFromFloat(float64(val))
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return IRInt(int64(val)), nil
		}
		return decimalFromFloat(val)
	case json.Number:
		return fromNumber(val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func decimalFromFloat(f float64) (IRValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("number has no decimal form: %v", f)
	}
	return IRDecimal(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func fromNumber(n json.Number) (IRValue, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", s, err)
		}
		if strings.ContainsAny(s, "eE") {
			return decimalFromFloat(f)
		}
		return IRDecimal(s), nil
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("number out of int64 range: %s", s)
	}
	return IRInt(i), nil
}

// UnmarshalIRValue decodes JSON into an IRValue.
// Numbers are decoded with UseNumber so integers never pass through float64.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// UnmarshalVariables decodes a JSON object of GraphQL variables.
// An empty input yields an empty object.
func UnmarshalVariables(data []byte) (IRObject, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return IRObject{}, nil
	}
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("variables must be a JSON object, got %s", TypeName(v))
	}
	return obj, nil
}
