package schema

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/shape"
)

// DefaultShapePrefix is prepended to a shape name when no id is declared.
const DefaultShapePrefix = "urn:graphgate:shape:"

// predeclared prefixes available in every description.
var predeclared = map[string]string{
	"xsd": "http://www.w3.org/2001/XMLSchema#",
	"rdf": "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
}

// CompileString compiles CUE source text into a registry.
// filename is used in error positions.
func CompileString(src, filename string) (*shape.Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile builds a registry from a CUE value. Returns on the first error.
func Compile(v cue.Value) (*shape.Registry, error) {
	reg, errs := compile(v, false)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return reg, nil
}

// CompileAll is like Compile but collects every error before returning.
// The registry is nil when any error was found.
func CompileAll(v cue.Value) (*shape.Registry, []error) {
	return compile(v, true)
}

func compile(v cue.Value, collect bool) (*shape.Registry, []error) {
	if err := v.Validate(); err != nil {
		return nil, []error{formatCUEError(err, "cue")}
	}

	prefixes, err := parsePrefixes(v)
	if err != nil {
		return nil, []error{err}
	}

	shapesVal := v.LookupPath(cue.ParsePath("shape"))
	if !shapesVal.Exists() {
		return nil, []error{&CompileError{
			Code:    ErrCodeNoShapes,
			Field:   "shape",
			Message: "no shapes declared",
			Pos:     v.Pos(),
		}}
	}

	iter, err := shapesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err, "shape")}
	}

	var (
		errs  []error
		nodes []*shape.NodeShape
	)
	for iter.Next() {
		node, err := compileNode(iter.Label(), iter.Value(), prefixes)
		if err != nil {
			errs = append(errs, err)
			if !collect {
				return nil, errs
			}
			continue
		}
		nodes = append(nodes, node)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if len(nodes) == 0 {
		return nil, []error{&CompileError{
			Code:    ErrCodeNoShapes,
			Field:   "shape",
			Message: "no shapes declared",
			Pos:     shapesVal.Pos(),
		}}
	}

	reg, err := shape.NewRegistry(nodes...)
	if err != nil {
		return nil, []error{wrapViolation(err, "shape", shapesVal)}
	}
	return reg, nil
}

// prefixMap expands compact IRIs.
type prefixMap map[string]string

func parsePrefixes(v cue.Value) (prefixMap, error) {
	prefixes := make(prefixMap, len(predeclared))
	for k, ns := range predeclared {
		prefixes[k] = ns
	}

	pv := v.LookupPath(cue.ParsePath("prefixes"))
	if !pv.Exists() {
		return prefixes, nil
	}
	iter, err := pv.Fields()
	if err != nil {
		return nil, formatCUEError(err, "prefixes")
	}
	for iter.Next() {
		ns, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Code:    ErrCodeInvalidField,
				Field:   "prefixes." + iter.Label(),
				Message: "prefix namespace must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		prefixes[iter.Label()] = ns
	}
	return prefixes, nil
}

// expand turns a compact or bracketed IRI into an absolute one.
func (p prefixMap) expand(s string) (string, error) {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return s[1 : len(s)-1], nil
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "urn:") {
		return s, nil
	}
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%q is not an IRI", s)
	}
	ns, ok := p[prefix]
	if !ok {
		return "", fmt.Errorf("unknown prefix %q in %q", prefix, s)
	}
	return ns + local, nil
}

func compileNode(name string, v cue.Value, prefixes prefixMap) (*shape.NodeShape, error) {
	field := "shape." + name

	id := DefaultShapePrefix + name
	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		iri, err := iriField(idVal, field+".id", prefixes)
		if err != nil {
			return nil, err
		}
		id = iri
	}

	var target string
	if tv := v.LookupPath(cue.ParsePath("target")); tv.Exists() {
		iri, err := iriField(tv, field+".target", prefixes)
		if err != nil {
			return nil, err
		}
		target = iri
	}

	var props []*shape.PropertyShape
	if pv := v.LookupPath(cue.ParsePath("property")); pv.Exists() {
		iter, err := pv.Fields()
		if err != nil {
			return nil, formatCUEError(err, field+".property")
		}
		for iter.Next() {
			p, err := compileProperty(name, id, iter.Label(), iter.Value(), prefixes)
			if err != nil {
				return nil, err
			}
			props = append(props, p)
		}
	}

	node, err := shape.NewNodeShape(shape.NodeDef{
		ID:          id,
		Name:        name,
		TargetClass: target,
		Properties:  props,
	})
	if err != nil {
		return nil, wrapViolation(err, field, v)
	}
	return node, nil
}

func compileProperty(owner, ownerID, name string, v cue.Value, prefixes prefixMap) (*shape.PropertyShape, error) {
	field := fmt.Sprintf("shape.%s.property.%s", owner, name)

	def := shape.PropertyDef{
		ID:   ownerID + "/" + name,
		Name: name,
	}

	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		iri, err := iriField(idVal, field+".id", prefixes)
		if err != nil {
			return nil, err
		}
		def.ID = iri
	}

	pathVal := v.LookupPath(cue.ParsePath("path"))
	if !pathVal.Exists() {
		return nil, &CompileError{
			Code:    ErrCodeMissingField,
			Field:   field + ".path",
			Message: "path is required",
			Pos:     v.Pos(),
		}
	}
	p, err := parsePath(pathVal, field+".path", prefixes)
	if err != nil {
		return nil, err
	}
	def.Path = p

	if dv := v.LookupPath(cue.ParsePath("datatype")); dv.Exists() {
		if def.Datatype, err = iriField(dv, field+".datatype", prefixes); err != nil {
			return nil, err
		}
	}
	if cv := v.LookupPath(cue.ParsePath("class")); cv.Exists() {
		if def.Class, err = iriField(cv, field+".class", prefixes); err != nil {
			return nil, err
		}
	}

	var nodeKind string
	if nv := v.LookupPath(cue.ParsePath("nodeKind")); nv.Exists() {
		if nodeKind, err = stringField(nv, field+".nodeKind"); err != nil {
			return nil, err
		}
		if nodeKind != "IRI" && nodeKind != "Literal" {
			return nil, &CompileError{
				Code:    ErrCodeInvalidField,
				Field:   field + ".nodeKind",
				Message: fmt.Sprintf("nodeKind must be \"IRI\" or \"Literal\", got %q", nodeKind),
				Pos:     nv.Pos(),
			}
		}
	}

	switch {
	case def.Class != "" || nodeKind == "IRI":
		def.Kind = shape.KindReference
	default:
		def.Kind = shape.KindLiteral
	}

	if def.MinCount, err = countField(v, "minCount", field); err != nil {
		return nil, err
	}
	if def.MaxCount, err = countField(v, "maxCount", field); err != nil {
		return nil, err
	}

	if hv := v.LookupPath(cue.ParsePath("hasValue")); hv.Exists() {
		values, err := stringList(hv, field+".hasValue")
		if err != nil {
			return nil, err
		}
		if def.Kind == shape.KindReference {
			for i, s := range values {
				if values[i], err = prefixes.expand(s); err != nil {
					return nil, &CompileError{Code: ErrCodeUnknownPrefix, Field: field + ".hasValue", Message: err.Error(), Pos: hv.Pos()}
				}
			}
		}
		def.HasValue = values
	}

	ps, err := shape.NewPropertyShape(def)
	if err != nil {
		return nil, wrapViolation(err, field, v)
	}
	return ps, nil
}

// parsePath converts a path description into the path algebra.
func parsePath(v cue.Value, field string, prefixes prefixMap) (path.PropertyPath, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		iri, err := iriField(v, field, prefixes)
		if err != nil {
			return nil, err
		}
		return path.Predicate{IRI: iri}, nil

	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		var parts []path.PropertyPath
		for i := 0; list.Next(); i++ {
			part, err := parsePath(list.Value(), fmt.Sprintf("%s[%d]", field, i), prefixes)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			return nil, &CompileError{Code: ErrCodeInvalidPath, Field: field, Message: "empty path list", Pos: v.Pos()}
		}
		return path.Seq(parts...), nil

	case cue.StructKind:
		inv := v.LookupPath(cue.ParsePath("inverse"))
		if !inv.Exists() {
			return nil, &CompileError{
				Code:    ErrCodeInvalidPath,
				Field:   field,
				Message: "path object must have an inverse field",
				Pos:     v.Pos(),
			}
		}
		of, err := parsePath(inv, field+".inverse", prefixes)
		if err != nil {
			return nil, err
		}
		return path.Inverse{Of: of}, nil

	default:
		return nil, &CompileError{
			Code:    ErrCodeInvalidPath,
			Field:   field,
			Message: fmt.Sprintf("path must be a string, list or {inverse: ...}, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func stringField(v cue.Value, field string) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{
			Code:    ErrCodeInvalidField,
			Field:   field,
			Message: "must be a string",
			Pos:     v.Pos(),
			Err:     err,
		}
	}
	return s, nil
}

func iriField(v cue.Value, field string, prefixes prefixMap) (string, error) {
	s, err := stringField(v, field)
	if err != nil {
		return "", err
	}
	iri, err := prefixes.expand(s)
	if err != nil {
		return "", &CompileError{Code: ErrCodeUnknownPrefix, Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return iri, nil
}

func countField(v cue.Value, label, field string) (*int, error) {
	cv := v.LookupPath(cue.ParsePath(label))
	if !cv.Exists() {
		return nil, nil
	}
	n, err := cv.Int64()
	if err != nil {
		return nil, &CompileError{
			Code:    ErrCodeInvalidField,
			Field:   field + "." + label,
			Message: "must be an integer",
			Pos:     cv.Pos(),
			Err:     err,
		}
	}
	count := int(n)
	return &count, nil
}

// stringList accepts a single string or a list of strings.
func stringList(v cue.Value, field string) ([]string, error) {
	if s, err := v.String(); err == nil {
		return []string{s}, nil
	}
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Code: ErrCodeInvalidField, Field: field, Message: "must be a string or list of strings", Pos: v.Pos()}
	}
	var out []string
	for i := 0; list.Next(); i++ {
		s, err := stringField(list.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// wrapViolation attaches the CUE position of v to a shape model error.
func wrapViolation(err error, field string, v cue.Value) error {
	var irErr *ir.Error
	if !errors.As(err, &irErr) {
		return &CompileError{Code: ErrCodeGeneric, Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	shapeName := irErr.Shape
	if shapeName == "" {
		if parts := strings.Split(field, "."); len(parts) > 1 {
			shapeName = parts[1]
		}
	}
	located := shape.Locate(irErr, shapeName)
	return &CompileError{
		Code:    located.Code,
		Field:   field,
		Message: located.Error(),
		Pos:     v.Pos(),
		Err:     located,
	}
}
