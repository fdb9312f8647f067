package request

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/queryir"
	"github.com/roach88/graphgate/internal/shape"
)

// Request is one top-level field of a client operation, ready to compile.
type Request struct {
	// Field is the response key: the alias if present, else the field name.
	Field string

	Root      *shape.NodeShape
	Selection compiler.Selection
}

// Translate converts the only operation in query.
// See TranslateOperation.
func Translate(reg *shape.Registry, query string, vars ir.IRObject) ([]Request, error) {
	return TranslateOperation(reg, query, "", vars)
}

// TranslateOperation converts the operation named operationName (or the
// only one when operationName is empty) into one Request per top-level
// field, in document order.
//
// Errors are *ir.Error values: SCHEMA_ERROR for unknown shapes and fields,
// UNSUPPORTED_OPERATION for documents or arguments the compiler cannot
// serve, TYPE_MISMATCH for argument values of the wrong kind.
func TranslateOperation(reg *shape.Registry, query, operationName string, vars ir.IRObject) ([]Request, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		e := ir.NewUnsupportedOperation("", "", "invalid GraphQL document")
		e.Code = ErrCodeSyntax
		e.Err = err
		return nil, e
	}

	op, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}

	t := &translator{reg: reg, doc: doc, op: op, vars: vars}
	return t.operation()
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	var op *ast.OperationDefinition
	switch {
	case name != "":
		op = doc.Operations.ForName(name)
		if op == nil {
			return nil, unsupported(ErrCodeOperation, nil, "", "", "no operation named %q", name)
		}
	case len(doc.Operations) == 1:
		op = doc.Operations[0]
	case len(doc.Operations) == 0:
		return nil, unsupported(ErrCodeOperation, nil, "", "", "document has no operation")
	default:
		return nil, unsupported(ErrCodeOperation, nil, "", "", "document has %d operations; an operation name is required", len(doc.Operations))
	}

	if op.Operation != ast.Query {
		return nil, unsupported(ErrCodeOperation, op.Position, "", "", "%s operations are not supported", op.Operation)
	}
	return op, nil
}

// translator holds the state of one Translate call.
type translator struct {
	reg  *shape.Registry
	doc  *ast.QueryDocument
	op   *ast.OperationDefinition
	vars ir.IRObject

	// fragments being inlined, for cycle detection
	inlining []string
}

func (t *translator) operation() ([]Request, error) {
	var out []Request
	err := t.eachField(t.op.SelectionSet, "", func(f *ast.Field) error {
		root, ok := t.reg.ByName(ShapeName(f.Name))
		if !ok {
			return ir.NewSchemaError("", f.Name, "no node shape for root field %q", f.Name)
		}

		sel, err := t.selection(root, f, true)
		if err != nil {
			return err
		}

		key := f.Alias
		if key == "" {
			key = f.Name
		}
		out = append(out, Request{Field: key, Root: root, Selection: *sel})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, unsupported(ErrCodeOperation, t.op.Position, "", "", "operation selects no fields")
	}
	return out, nil
}

// ShapeName maps a root field name to its node shape name by upper-casing
// the first letter.
func ShapeName(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	if r == utf8.RuneError {
		return field
	}
	return string(unicode.ToUpper(r)) + field[size:]
}

// eachField calls fn for every field of set after applying @skip/@include
// and inlining fragments. typeName is the node shape name fragments must
// match ("" at the operation level).
func (t *translator) eachField(set ast.SelectionSet, typeName string, fn func(*ast.Field) error) error {
	for _, s := range set {
		switch sel := s.(type) {
		case *ast.Field:
			if sel.Name == "__typename" {
				continue
			}
			included, err := t.included(sel.Directives)
			if err != nil {
				return err
			}
			if included {
				if err := fn(sel); err != nil {
					return err
				}
			}

		case *ast.InlineFragment:
			included, err := t.included(sel.Directives)
			if err != nil {
				return err
			}
			if !included {
				continue
			}
			if err := t.checkTypeCondition(sel.TypeCondition, typeName, sel.Position); err != nil {
				return err
			}
			if err := t.eachField(sel.SelectionSet, typeName, fn); err != nil {
				return err
			}

		case *ast.FragmentSpread:
			included, err := t.included(sel.Directives)
			if err != nil {
				return err
			}
			if !included {
				continue
			}
			if err := t.spread(sel, typeName, fn); err != nil {
				return err
			}

		default:
			return unsupported(ErrCodeOperation, nil, typeName, "", "unknown selection %T", s)
		}
	}
	return nil
}

func (t *translator) spread(s *ast.FragmentSpread, typeName string, fn func(*ast.Field) error) error {
	def := t.doc.Fragments.ForName(s.Name)
	if def == nil {
		return unsupported(ErrCodeFragment, s.Position, typeName, "", "unknown fragment %q", s.Name)
	}
	for _, name := range t.inlining {
		if name == s.Name {
			return unsupported(ErrCodeFragment, s.Position, typeName, "", "fragment %q spreads itself", s.Name)
		}
	}
	if err := t.checkTypeCondition(def.TypeCondition, typeName, s.Position); err != nil {
		return err
	}

	t.inlining = append(t.inlining, s.Name)
	defer func() { t.inlining = t.inlining[:len(t.inlining)-1] }()
	return t.eachField(def.SelectionSet, typeName, fn)
}

func (t *translator) checkTypeCondition(cond, typeName string, pos *ast.Position) error {
	if cond == "" || cond == typeName {
		return nil
	}
	if typeName == "" {
		return unsupported(ErrCodeFragment, pos, "", "", "fragment on %s at the operation level", cond)
	}
	return unsupported(ErrCodeFragment, pos, typeName, "", "fragment on %s cannot apply to %s", cond, typeName)
}

// included evaluates @skip and @include. Other directives except @expand
// are rejected.
func (t *translator) included(dirs ast.DirectiveList) (bool, error) {
	for _, d := range dirs {
		switch d.Name {
		case "skip", "include":
			cond, err := t.directiveCondition(d)
			if err != nil {
				return false, err
			}
			if cond == (d.Name == "skip") {
				return false, nil
			}
		case "expand":
		default:
			return false, unsupported(ErrCodeDirective, d.Position, "", "", "unknown directive @%s", d.Name)
		}
	}
	return true, nil
}

func (t *translator) directiveCondition(d *ast.Directive) (bool, error) {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, unsupported(ErrCodeDirective, d.Position, "", "", "@%s needs an if argument", d.Name)
	}
	v, err := t.value(arg.Value)
	if err != nil {
		return false, err
	}
	b, ok := v.(ir.IRBool)
	if !ok {
		return false, mismatch(ErrCodeArgument, arg.Position, "", "", "@%s(if:) must be a Boolean, got %s", d.Name, ir.TypeName(v))
	}
	return bool(b), nil
}

// selection builds the selection of field f whose target shape is node.
func (t *translator) selection(node *shape.NodeShape, f *ast.Field, root bool) (*compiler.Selection, error) {
	sel := &compiler.Selection{
		All: f.Directives.ForName("expand") != nil,
	}

	err := t.eachField(f.SelectionSet, node.Name(), func(child *ast.Field) error {
		field, err := t.field(node, child)
		if err != nil {
			return err
		}
		sel.Fields = append(sel.Fields, field)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, arg := range f.Arguments {
		v, err := t.value(arg.Value)
		if err != nil {
			return nil, err
		}
		switch arg.Name {
		case "filter":
			obj, ok := v.(ir.IRObject)
			if !ok {
				return nil, mismatch(ErrCodeArgument, arg.Position, node.Name(), "", "filter must be an object, got %s", ir.TypeName(v))
			}
			sel.Filters, err = t.filters(node, obj)
		case "join":
			sel.Join, err = parseJoin(v, arg.Position)
		case "sort":
			if !root {
				return nil, unsupported(ErrCodeArgument, arg.Position, node.Name(), "", "sort is only supported on root fields")
			}
			sel.Sort, err = parseSort(v, arg.Position)
		case "aggregate":
			if root {
				return nil, unsupported(ErrCodeArgument, arg.Position, node.Name(), "", "aggregate is not supported on root fields")
			}
			// Handled by field.
		default:
			return nil, unsupported(ErrCodeArgument, arg.Position, node.Name(), "", "unknown argument %q", arg.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// field translates one field of node.
func (t *translator) field(node *shape.NodeShape, f *ast.Field) (compiler.Field, error) {
	out := compiler.Field{Name: f.Name}
	if f.Alias != f.Name {
		out.Alias = f.Alias
	}

	prop, ok := node.Property(f.Name)
	if !ok {
		return out, ir.NewSchemaError(node.Name(), f.Name, "unknown field %q", f.Name)
	}

	if arg := f.Arguments.ForName("aggregate"); arg != nil {
		v, err := t.value(arg.Value)
		if err != nil {
			return out, err
		}
		name, ok := v.(ir.IRString)
		if !ok {
			return out, mismatch(ErrCodeArgument, arg.Position, node.Name(), f.Name, "aggregate must be an enum, got %s", ir.TypeName(v))
		}
		if out.Aggregate, err = queryir.ParseAggregate(string(name)); err != nil {
			return out, err
		}
	}

	nested := len(f.SelectionSet) > 0 || f.Directives.ForName("expand") != nil
	if !nested && len(f.Arguments) == 0 {
		return out, nil
	}
	if !prop.IsReference() {
		if nested {
			return out, ir.NewUnsupportedOperation(node.Name(), f.Name, "literal field has no subfields")
		}
		if len(f.Arguments) > 1 || f.Arguments.ForName("aggregate") == nil {
			return out, unsupported(ErrCodeArgument, f.Position, node.Name(), f.Name, "literal fields only take an aggregate argument")
		}
		return out, nil
	}

	target, ok := prop.TargetShape(t.reg)
	if !ok {
		return out, ir.NewSchemaError(node.Name(), f.Name, "no node shape for class %q", prop.Class())
	}
	sel, err := t.selection(target, f, false)
	if err != nil {
		return out, err
	}

	if sel.HasSubfields() {
		out.Selection = sel
	}
	return out, nil
}

// filters translates a filter object on node.
func (t *translator) filters(node *shape.NodeShape, obj ir.IRObject) ([]compiler.FilterSpec, error) {
	var specs []compiler.FilterSpec
	for _, key := range obj.SortedKeys() {
		prop, ok := node.Property(key)
		if !ok {
			return nil, ir.NewSchemaError(node.Name(), key, "unknown field %q", key)
		}

		cond, ok := obj[key].(ir.IRObject)
		if !ok {
			specs = append(specs, compiler.FilterSpec{Field: key, Operator: queryir.OpEQ, Values: valuesOf(obj[key])})
			continue
		}

		nested := ir.IRObject{}
		for _, name := range cond.SortedKeys() {
			v := cond[name]
			if name == "in" {
				list, ok := v.(ir.IRArray)
				if !ok {
					return nil, mismatch(ErrCodeArgument, nil, node.Name(), key, "in needs a list, got %s", ir.TypeName(v))
				}
				specs = append(specs, compiler.FilterSpec{Field: key, Operator: queryir.OpEQ, Values: list})
				continue
			}

			op, err := queryir.ParseOperator(name)
			if err == nil {
				specs = append(specs, compiler.FilterSpec{Field: key, Operator: op, Values: valuesOf(v)})
				continue
			}
			if !prop.IsReference() {
				return nil, err
			}
			nested[name] = v
		}

		if len(nested) == 0 {
			continue
		}
		target, ok := prop.TargetShape(t.reg)
		if !ok {
			return nil, ir.NewSchemaError(node.Name(), key, "no node shape for class %q", prop.Class())
		}
		inner, err := t.filters(target, nested)
		if err != nil {
			return nil, err
		}
		specs = append(specs, compiler.FilterSpec{Field: key, Nested: inner})
	}
	return specs, nil
}

// valuesOf spreads a list into its elements; the OR of equal comparisons
// against each element is the list membership test.
func valuesOf(v ir.IRValue) []ir.IRValue {
	if list, ok := v.(ir.IRArray); ok {
		return list
	}
	return []ir.IRValue{v}
}

func parseJoin(v ir.IRValue, pos *ast.Position) (queryir.JoinType, error) {
	s, _ := v.(ir.IRString)
	switch strings.ToUpper(string(s)) {
	case "AND":
		return queryir.JoinAnd, nil
	case "OR":
		return queryir.JoinOr, nil
	default:
		return queryir.JoinAnd, unsupported(ErrCodeArgument, pos, "", "", "join must be AND or OR")
	}
}

func parseSort(v ir.IRValue, pos *ast.Position) ([]compiler.SortKey, error) {
	var keys []compiler.SortKey
	for _, item := range valuesOf(v) {
		obj, ok := item.(ir.IRObject)
		if !ok {
			return nil, mismatch(ErrCodeArgument, pos, "", "", "sort key must be an object, got %s", ir.TypeName(item))
		}
		field, ok := obj["field"].(ir.IRString)
		if !ok || field == "" {
			return nil, mismatch(ErrCodeArgument, pos, "", "", "sort key needs a field name")
		}

		key := compiler.SortKey{Path: strings.Split(string(field), ".")}
		if order, ok := obj["order"]; ok {
			s, _ := order.(ir.IRString)
			switch strings.ToUpper(string(s)) {
			case "ASC":
			case "DESC":
				key.Descending = true
			default:
				return nil, unsupported(ErrCodeArgument, pos, "", string(field), "sort order must be ASC or DESC")
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// value converts a GraphQL argument value, resolving variables.
func (t *translator) value(v *ast.Value) (ir.IRValue, error) {
	switch v.Kind {
	case ast.Variable:
		if val, ok := t.vars[v.Raw]; ok {
			return val, nil
		}
		if def := t.op.VariableDefinitions.ForName(v.Raw); def != nil {
			if def.DefaultValue != nil {
				return t.value(def.DefaultValue)
			}
			return ir.IRNull{}, nil
		}
		return nil, unsupported(ErrCodeVariable, v.Position, "", "", "undefined variable $%s", v.Raw)

	case ast.IntValue, ast.FloatValue:
		n, err := ir.FromAny(json.Number(v.Raw))
		if err != nil {
			return nil, mismatch(ErrCodeArgument, v.Position, "", "", "%v", err)
		}
		return n, nil

	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return ir.IRString(v.Raw), nil

	case ast.BooleanValue:
		return ir.IRBool(v.Raw == "true"), nil

	case ast.NullValue:
		return ir.IRNull{}, nil

	case ast.ListValue:
		list := make(ir.IRArray, len(v.Children))
		for i, child := range v.Children {
			item, err := t.value(child.Value)
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil

	case ast.ObjectValue:
		obj := make(ir.IRObject, len(v.Children))
		for _, child := range v.Children {
			item, err := t.value(child.Value)
			if err != nil {
				return nil, err
			}
			obj[child.Name] = item
		}
		return obj, nil

	default:
		return nil, unsupported(ErrCodeArgument, v.Position, "", "", "unsupported value %s", v.Raw)
	}
}
