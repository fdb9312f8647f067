package testutil

import (
	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/shape"
)

// Namespaces used by the fixtures.
const (
	EX  = "http://example.org/def#"
	XSD = "http://www.w3.org/2001/XMLSchema#"
)

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func literal(owner, name, predicate, datatype string, min, max *int) *shape.PropertyShape {
	return shape.MustPropertyShape(shape.PropertyDef{
		ID:       EX + owner + "Shape/" + name,
		Name:     name,
		Path:     path.Predicate{IRI: EX + predicate},
		Kind:     shape.KindLiteral,
		Datatype: datatype,
		MinCount: min,
		MaxCount: max,
	})
}

func reference(owner, name string, p path.PropertyPath, class string, min, max *int) *shape.PropertyShape {
	return shape.MustPropertyShape(shape.PropertyDef{
		ID:       EX + owner + "Shape/" + name,
		Name:     name,
		Path:     p,
		Kind:     shape.KindReference,
		Class:    class,
		MinCount: min,
		MaxCount: max,
	})
}

// BuildingRegistry returns the building domain:
//
//	Building  identifier (string, 1..1), name (string, 0..1),
//	          height (decimal, ..1), floors (integer, ..1),
//	          location → Geometry (..1), address → Address (..1),
//	          parts ← Part via ^ex:partOf, street (ex:hasAddress/ex:street)
//	Geometry  wkt (string, ..1)
//	Address   street (string, ..1), city (string, ..1)
//	Part      label (string, ..1), partOf → Building (1..1),
//	          kind (IRI, hasValue ex:Component)
func BuildingRegistry() *shape.Registry {
	building := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "BuildingShape",
		Name:        "Building",
		TargetClass: EX + "Building",
		Properties: []*shape.PropertyShape{
			literal("Building", "identifier", "identifier", XSD+"string", Int(1), Int(1)),
			literal("Building", "name", "name", XSD+"string", Int(0), Int(1)),
			literal("Building", "height", "height", XSD+"decimal", nil, Int(1)),
			literal("Building", "floors", "floors", XSD+"integer", nil, Int(1)),
			reference("Building", "location", path.Predicate{IRI: EX + "hasGeometry"}, EX+"Geometry", nil, Int(1)),
			reference("Building", "address", path.Predicate{IRI: EX + "hasAddress"}, EX+"Address", nil, Int(1)),
			reference("Building", "parts", path.Inverse{Of: path.Predicate{IRI: EX + "partOf"}}, EX+"Part", nil, nil),
			shape.MustPropertyShape(shape.PropertyDef{
				ID:       EX + "BuildingShape/street",
				Name:     "street",
				Path:     path.Seq(path.Predicate{IRI: EX + "hasAddress"}, path.Predicate{IRI: EX + "street"}),
				Kind:     shape.KindLiteral,
				Datatype: XSD + "string",
				MaxCount: Int(1),
			}),
		},
	})

	geometry := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "GeometryShape",
		Name:        "Geometry",
		TargetClass: EX + "Geometry",
		Properties: []*shape.PropertyShape{
			literal("Geometry", "wkt", "asWKT", XSD+"string", nil, Int(1)),
		},
	})

	address := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "AddressShape",
		Name:        "Address",
		TargetClass: EX + "Address",
		Properties: []*shape.PropertyShape{
			literal("Address", "street", "street", XSD+"string", nil, Int(1)),
			literal("Address", "city", "city", XSD+"string", nil, Int(1)),
		},
	})

	part := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "PartShape",
		Name:        "Part",
		TargetClass: EX + "Part",
		Properties: []*shape.PropertyShape{
			literal("Part", "label", "label", XSD+"string", nil, Int(1)),
			reference("Part", "partOf", path.Predicate{IRI: EX + "partOf"}, EX+"Building", Int(1), Int(1)),
			shape.MustPropertyShape(shape.PropertyDef{
				ID:       EX + "PartShape/kind",
				Name:     "kind",
				Path:     path.Predicate{IRI: EX + "kind"},
				Kind:     shape.KindReference,
				MaxCount: Int(1),
				HasValue: []string{EX + "Component"},
			}),
		},
	})

	return shape.MustRegistry(building, geometry, address, part)
}

// GeometryField is the property shape shared by Address and Geometry in
// CyclicRegistry.
const GeometryField = EX + "geometryProperty"

// CyclicRegistry returns schemas whose shape graph has cycles:
//
//	Address   street, geometry → Geometry
//	Geometry  wkt, geometry → Geometry (the same property shape as Address.geometry)
//	Person    name, knows → Person
func CyclicRegistry() *shape.Registry {
	geometryProp := shape.MustPropertyShape(shape.PropertyDef{
		ID:       GeometryField,
		Name:     "geometry",
		Path:     path.Predicate{IRI: EX + "hasGeometry"},
		Kind:     shape.KindReference,
		Class:    EX + "Geometry",
		MaxCount: Int(1),
	})

	address := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "AddressShape",
		Name:        "Address",
		TargetClass: EX + "Address",
		Properties: []*shape.PropertyShape{
			literal("Address", "street", "street", XSD+"string", nil, Int(1)),
			geometryProp,
		},
	})

	geometry := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "GeometryShape",
		Name:        "Geometry",
		TargetClass: EX + "Geometry",
		Properties: []*shape.PropertyShape{
			literal("Geometry", "wkt", "asWKT", XSD+"string", nil, Int(1)),
			geometryProp,
		},
	})

	person := shape.MustNodeShape(shape.NodeDef{
		ID:          EX + "PersonShape",
		Name:        "Person",
		TargetClass: EX + "Person",
		Properties: []*shape.PropertyShape{
			literal("Person", "name", "name", XSD+"string", Int(1), Int(1)),
			reference("Person", "knows", path.Predicate{IRI: EX + "knows"}, EX+"Person", nil, nil),
		},
	})

	return shape.MustRegistry(address, geometry, person)
}

// MustShape looks up a node shape by name or panics.
func MustShape(reg *shape.Registry, name string) *shape.NodeShape {
	s, ok := reg.ByName(name)
	if !ok {
		panic("testutil: no shape " + name)
	}
	return s
}

// MustProperty looks up a field by name or panics.
func MustProperty(node *shape.NodeShape, name string) *shape.PropertyShape {
	p, ok := node.Property(name)
	if !ok {
		panic("testutil: no field " + node.Name() + "." + name)
	}
	return p
}
