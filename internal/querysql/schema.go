package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/queryir"
	"github.com/roach88/graphgate/internal/shape"
)

// ColumnType returns the SQLite column type for a literal datatype.
func ColumnType(datatype string) string {
	local, ok := strings.CutPrefix(datatype, queryir.XSD)
	if !ok {
		return "TEXT"
	}
	switch local {
	case "integer", "int", "long", "short", "byte", "boolean",
		"nonNegativeInteger", "positiveInteger", "nonPositiveInteger", "negativeInteger",
		"unsignedInt", "unsignedLong", "unsignedShort", "unsignedByte":
		return "INTEGER"
	case "decimal", "double", "float":
		return "REAL"
	default:
		return "TEXT"
	}
}

type table struct {
	name    string
	columns []string
	types   map[string]string
}

func (t *table) add(col, typ string) {
	if _, ok := t.types[col]; ok {
		return
	}
	t.columns = append(t.columns, col)
	t.types[col] = typ
}

// Schema returns the CREATE TABLE statements of the relational mapping of
// reg, in registration order. Properties with multi-hop paths have no
// column and are skipped.
func Schema(reg *shape.Registry) ([]string, error) {
	var order []string
	tables := make(map[string]*table)
	tableFor := func(class string) (*table, error) {
		name, err := TableName(class)
		if err != nil {
			return nil, err
		}
		if t, ok := tables[name]; ok {
			return t, nil
		}
		t := &table{name: name, types: make(map[string]string)}
		tables[name] = t
		order = append(order, name)
		return t, nil
	}

	for _, node := range reg.Shapes() {
		if node.TargetClass() == "" {
			continue
		}
		own, err := tableFor(node.TargetClass())
		if err != nil {
			return nil, err
		}

		for _, prop := range node.Properties() {
			segs := path.Flatten(prop.Path())
			if len(segs) != 1 {
				continue
			}
			col, err := ColumnName(segs[0].IRI)
			if err != nil {
				return nil, err
			}

			typ := "TEXT"
			if !prop.IsReference() {
				typ = ColumnType(prop.Datatype())
			}
			if !segs[0].Inverse {
				own.add(col, typ)
				continue
			}
			if prop.Class() == "" {
				continue
			}
			other, err := tableFor(prop.Class())
			if err != nil {
				return nil, err
			}
			other.add(col, "TEXT")
		}
	}

	stmts := make([]string, 0, len(order))
	for _, name := range order {
		t := tables[name]
		defs := []string{"id TEXT PRIMARY KEY"}
		for _, col := range t.columns {
			defs = append(defs, fmt.Sprintf("%s %s", col, t.types[col]))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", ")))
	}
	return stmts, nil
}
