// Package schema compiles CUE shape descriptions into a shape.Registry.
//
// A description declares IRI prefixes and one entry per node shape:
//
//	prefixes: {
//		ex: "http://example.org/def#"
//	}
//
//	shape: Building: {
//		id:     "ex:BuildingShape" // default urn:graphgate:shape:Building
//		target: "ex:Building"
//		property: {
//			identifier: {path: "ex:identifier", datatype: "xsd:string", minCount: 1, maxCount: 1}
//			location:   {path: "ex:hasGeometry", class: "ex:Geometry", maxCount: 1}
//			parts:      {path: {inverse: "ex:partOf"}, class: "ex:Part"}
//			street:     {path: ["ex:address", "ex:street"], datatype: "xsd:string"}
//			status:     {path: "ex:status", nodeKind: "IRI", hasValue: ["ex:Active"]}
//		}
//	}
//
// Path descriptions map onto the path algebra: a string is a Predicate, a
// list is a right-folded Sequence, and {inverse: X} is an Inverse of X.
//
// A property with class or nodeKind "IRI" is a reference; a property with a
// datatype is a literal. A property with neither is a literal without a
// datatype and fails the load with a constraint violation.
//
// The xsd and rdf prefixes are predeclared. Absolute IRIs (anything with
// "://", urn: IRIs, or <...> forms) pass through unchanged.
package schema
