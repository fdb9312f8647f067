package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/shape"
)

// XSD is the XML Schema datatype namespace.
const XSD = "http://www.w3.org/2001/XMLSchema#"

// Operand is a sealed interface over filter values.
// Only Reference and Literal implement it.
type Operand interface {
	operandNode() // Marker method - seals interface to this package

	// String renders the operand as a SPARQL term.
	String() string
}

// Reference is an entity identifier.
type Reference struct {
	IRI string
}

func (Reference) operandNode() {}

func (r Reference) String() string {
	return "<" + r.IRI + ">"
}

// Literal is a typed literal value in lexical form.
type Literal struct {
	Lexical  string
	Datatype string
}

func (Literal) operandNode() {}

func (l Literal) String() string {
	quoted := `"` + EscapeLiteral(l.Lexical) + `"`
	if l.Datatype == "" || l.Datatype == XSD+"string" {
		return quoted
	}
	return quoted + "^^<" + l.Datatype + ">"
}

// EscapeLiteral escapes a string for a double-quoted SPARQL literal.
func EscapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Operator is a comparison operator.
type Operator int

const (
	OpEQ Operator = iota + 1
	OpNE
	OpLT
	OpLTE
	OpGT
	OpGTE
)

var operatorNames = map[Operator]string{
	OpEQ:  "EQ",
	OpNE:  "NE",
	OpLT:  "LT",
	OpLTE: "LTE",
	OpGT:  "GT",
	OpGTE: "GTE",
}

var operatorSymbols = map[Operator]string{
	OpEQ:  "=",
	OpNE:  "!=",
	OpLT:  "<",
	OpLTE: "<=",
	OpGT:  ">",
	OpGTE: ">=",
}

// String returns the operator tag ("EQ", "NE", ...).
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Symbol returns the infix symbol shared by SPARQL and SQL.
func (o Operator) Symbol() string {
	return operatorSymbols[o]
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// ParseOperator maps a GraphQL argument name to an operator.
// Accepts eq, ne/neq, lt, lte, gt, gte in any case.
func ParseOperator(name string) (Operator, error) {
	switch strings.ToLower(name) {
	case "eq":
		return OpEQ, nil
	case "ne", "neq":
		return OpNE, nil
	case "lt":
		return OpLT, nil
	case "lte":
		return OpLTE, nil
	case "gt":
		return OpGT, nil
	case "gte":
		return OpGTE, nil
	default:
		return 0, ir.NewUnsupportedOperation("", "", "unknown operator %q", name)
	}
}

// JoinType combines expressions.
type JoinType int

const (
	JoinAnd JoinType = iota
	JoinOr
)

// String returns "AND" or "OR".
func (j JoinType) String() string {
	if j == JoinOr {
		return "OR"
	}
	return "AND"
}

// Expression is a sealed interface over boolean filter expressions.
// Only Comparison and Junction implement it.
type Expression interface {
	expressionNode() // Marker method - seals interface to this package

	// String renders the expression in SPARQL filter syntax.
	String() string
}

// Comparison tests a variable against an operand.
//
// Example:
//
//	Comparison{Variable: "x0", Operator: OpEQ, Operand: Literal{Lexical: "123", Datatype: XSD + "string"}}
//
// renders as:
//
//	?x0 = "123"
type Comparison struct {
	Variable Var
	Operator Operator
	Operand  Operand
}

func (Comparison) expressionNode() {}

func (c Comparison) String() string {
	return fmt.Sprintf("?%s %s %s", c.Variable, c.Operator.Symbol(), c.Operand)
}

// Junction combines two expressions with AND or OR.
type Junction struct {
	Type  JoinType
	Left  Expression
	Right Expression
}

func (Junction) expressionNode() {}

func (j Junction) String() string {
	op := " && "
	if j.Type == JoinOr {
		op = " || "
	}
	return "(" + j.Left.String() + op + j.Right.String() + ")"
}

// OperandFor wraps a filter value for a field of node.
//
// Reference fields take a string identifier. Literal fields take a value
// whose kind matches the field datatype; the lexical form is copied
// verbatim. There is no other coercion.
func OperandFor(node *shape.NodeShape, field string, value ir.IRValue) (Operand, error) {
	prop, ok := node.Property(field)
	if !ok {
		return nil, ir.NewUnsupportedOperation(node.Name(), field, "no field %q to filter on", field)
	}

	if prop.IsReference() {
		s, ok := value.(ir.IRString)
		if !ok || s == "" {
			return nil, ir.NewTypeMismatch(node.Name(), field,
				"reference filter needs a non-empty string identifier, got %s", ir.TypeName(value))
		}
		return Reference{IRI: string(s)}, nil
	}

	datatype := prop.Datatype()
	if !acceptsValue(datatype, value) {
		return nil, ir.NewTypeMismatch(node.Name(), field,
			"%s value cannot be compared with %s", ir.TypeName(value), datatype)
	}
	lexical, _ := ir.Lexical(value)
	return Literal{Lexical: lexical, Datatype: datatype}, nil
}

var integerTypes = map[string]bool{
	"integer": true, "int": true, "long": true, "short": true, "byte": true,
	"nonNegativeInteger": true, "positiveInteger": true,
	"nonPositiveInteger": true, "negativeInteger": true,
	"unsignedInt": true, "unsignedLong": true, "unsignedShort": true, "unsignedByte": true,
}

var decimalTypes = map[string]bool{
	"decimal": true, "double": true, "float": true,
}

// acceptsValue reports whether value has a kind compatible with datatype.
func acceptsValue(datatype string, value ir.IRValue) bool {
	local, isXSD := strings.CutPrefix(datatype, XSD)
	switch value.(type) {
	case ir.IRInt:
		return isXSD && (integerTypes[local] || decimalTypes[local])
	case ir.IRDecimal:
		return isXSD && decimalTypes[local]
	case ir.IRBool:
		return isXSD && local == "boolean"
	case ir.IRString:
		return !isXSD || !(integerTypes[local] || decimalTypes[local] || local == "boolean")
	default:
		return false
	}
}

// ExpressionFor builds the comparison of variable against operand.
func ExpressionFor(variable Var, op Operator, operand Operand) (Expression, error) {
	if !op.Valid() {
		return nil, ir.NewUnsupportedOperation("", "", "unknown operator %s", op)
	}
	if operand == nil {
		return nil, ir.NewUnsupportedOperation("", "", "%s needs an operand", op)
	}
	return Comparison{Variable: variable, Operator: op, Operand: operand}, nil
}

// Join left-folds exprs with one join type.
//
// A single expression is returned unchanged. The fold applies the same
// join type at every step; callers mixing AND and OR must nest Join calls
// explicitly.
func Join(jt JoinType, exprs []Expression) (Expression, error) {
	if len(exprs) == 0 {
		return nil, ir.NewUnsupportedOperation("", "", "join of no expressions")
	}
	acc := exprs[0]
	for _, e := range exprs[1:] {
		acc = Junction{Type: jt, Left: acc, Right: e}
	}
	return acc, nil
}

// Comparisons lists the comparisons in expr, left to right.
func Comparisons(expr Expression) []Comparison {
	var out []Comparison
	var walk func(Expression)
	walk = func(e Expression) {
		switch v := e.(type) {
		case Comparison:
			out = append(out, v)
		case *Comparison:
			out = append(out, *v)
		case Junction:
			walk(v.Left)
			walk(v.Right)
		case *Junction:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(expr)
	return out
}
