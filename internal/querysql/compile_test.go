package querysql

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/path"
	"github.com/roach88/graphgate/internal/queryir"
	"github.com/roach88/graphgate/internal/shape"
	"github.com/roach88/graphgate/internal/testutil"
)

const ex = testutil.EX

func graphFor(t *testing.T, root string, sel compiler.Selection) *queryir.Graph {
	t.Helper()
	reg := testutil.BuildingRegistry()
	g, err := compiler.New(reg).Compile(testutil.MustShape(reg, root), sel)
	require.NoError(t, err)
	return g
}

// openBuildingDB creates the building schema in an in-memory database and
// loads a few rows.
func openBuildingDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts, err := Schema(testutil.BuildingRegistry())
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	rows := []string{
		`INSERT INTO "Building" (id, "identifier", "name", "floors", "hasGeometry") VALUES ('b1', '123', 'Tower', 12, 'g1')`,
		`INSERT INTO "Building" (id, "identifier", "name", "floors") VALUES ('b2', '456', 'Shed', 1)`,
		`INSERT INTO "Geometry" (id, "asWKT") VALUES ('g1', 'POINT(1 2)')`,
		`INSERT INTO "Part" (id, "label", "partOf", "kind") VALUES ('p1', 'roof', 'b1', '` + ex + `Component')`,
		`INSERT INTO "Part" (id, "label", "partOf", "kind") VALUES ('p2', 'door', 'b1', '` + ex + `Component')`,
		`INSERT INTO "Part" (id, "label", "partOf", "kind") VALUES ('p3', 'sign', 'b2', '` + ex + `Fixture')`,
	}
	for _, stmt := range rows {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func queryStrings(t *testing.T, db *sql.DB, query string, params []any) [][]string {
	t.Helper()
	rows, err := db.Query(query, params...)
	require.NoError(t, err, query)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = v.String
		}
		out = append(out, row)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestSchema(t *testing.T) {
	stmts, err := Schema(testutil.BuildingRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{
		`CREATE TABLE "Building" (id TEXT PRIMARY KEY, "identifier" TEXT, "name" TEXT, "height" REAL, "floors" INTEGER, "hasGeometry" TEXT, "hasAddress" TEXT)`,
		`CREATE TABLE "Part" (id TEXT PRIMARY KEY, "partOf" TEXT, "label" TEXT, "kind" TEXT)`,
		`CREATE TABLE "Geometry" (id TEXT PRIMARY KEY, "asWKT" TEXT)`,
		`CREATE TABLE "Address" (id TEXT PRIMARY KEY, "street" TEXT, "city" TEXT)`,
	}, stmts)
}

func TestCompile_BuildingScenario(t *testing.T) {
	g := graphFor(t, "Building", compiler.Selection{
		Fields: []compiler.Field{
			{Name: "identifier"},
			{Name: "location", Selection: &compiler.Selection{Fields: []compiler.Field{{Name: "wkt"}}}},
		},
		Filters: []compiler.FilterSpec{
			{Field: "identifier", Operator: queryir.OpEQ, Values: []ir.IRValue{ir.IRString("123")}},
		},
	})

	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT t0.id AS x0, t0."identifier" AS x1, t1.id AS x2, t1."asWKT" AS x3`+
			` FROM "Building" AS t0`+
			` LEFT JOIN "Geometry" AS t1 ON t1.id = t0."hasGeometry"`+
			` WHERE t0."identifier" = ?`+
			` ORDER BY t0.id COLLATE BINARY ASC`,
		query)
	assert.Equal(t, []any{"123"}, params)
	assert.NotContains(t, query, "123", "values are never interpolated")

	db := openBuildingDB(t)
	assert.Equal(t, [][]string{{"b1", "123", "g1", "POINT(1 2)"}}, queryStrings(t, db, query, params))
}

func TestCompile_StableOrderKey(t *testing.T) {
	g := graphFor(t, "Building", compiler.Selection{Fields: []compiler.Field{{Name: "identifier"}}})
	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(query, ` ORDER BY t0.id COLLATE BINARY ASC`), query)

	db := openBuildingDB(t)
	assert.Equal(t, [][]string{{"b1", "123"}, {"b2", "456"}}, queryStrings(t, db, query, params))
}

func TestCompile_OptionalJoinKeepsRows(t *testing.T) {
	g := graphFor(t, "Building", compiler.Selection{Fields: []compiler.Field{
		{Name: "identifier"},
		{Name: "location", Selection: &compiler.Selection{Fields: []compiler.Field{{Name: "wkt"}}}},
	}})
	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	db := openBuildingDB(t)
	assert.Equal(t, [][]string{
		{"b1", "123", "g1", "POINT(1 2)"},
		{"b2", "456", "", ""},
	}, queryStrings(t, db, query, params))
}

func TestCompile_HasValueConstraint(t *testing.T) {
	g := graphFor(t, "Part", compiler.Selection{Fields: []compiler.Field{{Name: "label"}}})
	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT t0.id AS x0, t0."kind" AS x2, t0."label" AS x1 FROM "Part" AS t0`+
			` WHERE t0."kind" IN (?) ORDER BY t0.id COLLATE BINARY ASC`,
		query)
	assert.Equal(t, []any{ex + "Component"}, params)

	db := openBuildingDB(t)
	assert.Equal(t, [][]string{
		{"p1", ex + "Component", "roof"},
		{"p2", ex + "Component", "door"},
	}, queryStrings(t, db, query, params))
}

// itemRegistry has an optional reference field restricted by hasValue.
func itemRegistry() *shape.Registry {
	return shape.MustRegistry(shape.MustNodeShape(shape.NodeDef{
		ID:          ex + "ItemShape",
		Name:        "Item",
		TargetClass: ex + "Item",
		Properties: []*shape.PropertyShape{
			shape.MustPropertyShape(shape.PropertyDef{
				ID: ex + "ItemShape/label", Name: "label", Path: path.Predicate{IRI: ex + "label"},
				Kind: shape.KindLiteral, Datatype: testutil.XSD + "string", MaxCount: testutil.Int(1),
			}),
			shape.MustPropertyShape(shape.PropertyDef{
				ID: ex + "ItemShape/status", Name: "status", Path: path.Predicate{IRI: ex + "status"},
				Kind: shape.KindReference, MinCount: testutil.Int(0), MaxCount: testutil.Int(1),
				HasValue: []string{ex + "Active"},
			}),
		},
	}))
}

func TestCompile_OptionalHasValueMasksColumn(t *testing.T) {
	reg := itemRegistry()
	item := testutil.MustShape(reg, "Item")

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	stmts, err := Schema(reg)
	require.NoError(t, err)
	stmts = append(stmts,
		`INSERT INTO "Item" (id, "label", "status") VALUES ('i1', 'a', '`+ex+`Active')`,
		`INSERT INTO "Item" (id, "label", "status") VALUES ('i2', 'b', '`+ex+`Retired')`,
		`INSERT INTO "Item" (id, "label") VALUES ('i3', 'c')`,
	)
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	t.Run("projection", func(t *testing.T) {
		g, err := compiler.New(reg).Compile(item, compiler.Selection{Fields: []compiler.Field{{Name: "label"}}})
		require.NoError(t, err)
		query, params, err := NewSQLCompiler().Compile(g)
		require.NoError(t, err)

		assert.Equal(t,
			`SELECT t0.id AS x0, t0."label" AS x1, CASE WHEN t0."status" IN (?) THEN t0."status" END AS x2`+
				` FROM "Item" AS t0 ORDER BY t0.id COLLATE BINARY ASC`,
			query)
		assert.Equal(t, []any{ex + "Active"}, params)
		assert.Equal(t, [][]string{
			{"i1", "a", ex + "Active"},
			{"i2", "b", ""},
			{"i3", "c", ""},
		}, queryStrings(t, db, query, params), "a value outside the list unbinds the field and keeps the row")
	})

	t.Run("filter sees the masked value", func(t *testing.T) {
		g, err := compiler.New(reg).Compile(item, compiler.Selection{
			Fields: []compiler.Field{{Name: "label"}},
			Filters: []compiler.FilterSpec{
				{Field: "status", Operator: queryir.OpNE, Values: []ir.IRValue{ir.IRString(ex + "Active")}},
			},
		})
		require.NoError(t, err)
		query, params, err := NewSQLCompiler().Compile(g)
		require.NoError(t, err)

		assert.Contains(t, query, `WHERE CASE WHEN t0."status" IN (?) THEN t0."status" END != ?`)
		assert.Equal(t, []any{ex + "Active", ex + "Active", ex + "Active"}, params)
		assert.Empty(t, queryStrings(t, db, query, params), "an unbound field fails every comparison")
	})
}

func TestCompile_CountAggregate(t *testing.T) {
	g := graphFor(t, "Building", compiler.Selection{Fields: []compiler.Field{
		{Name: "identifier"},
		{Name: "parts", Aggregate: queryir.AggCount},
	}})
	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	assert.Contains(t, query, `(SELECT COUNT(*) FROM "Part" AS a1 WHERE a1."partOf" = t0.id) AS x3`)
	assert.Empty(t, params)

	db := openBuildingDB(t)
	assert.Equal(t, [][]string{
		{"b1", "123", "2"},
		{"b2", "456", "1"},
	}, queryStrings(t, db, query, params))
}

func TestCompile_InverseJoin(t *testing.T) {
	g := graphFor(t, "Building", compiler.Selection{
		Fields: []compiler.Field{
			{Name: "identifier"},
			{Name: "parts", Selection: &compiler.Selection{Fields: []compiler.Field{{Name: "label"}}}},
		},
		Sort: []compiler.SortKey{{Path: []string{"identifier"}, Descending: true}},
	})
	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	assert.Contains(t, query, `LEFT JOIN "Part" AS t1 ON t1."partOf" = t0.id AND t1."kind" IN (?)`)
	assert.NotContains(t, query, "WHERE")
	assert.Equal(t, []any{ex + "Component"}, params)
	assert.Contains(t, query, `ORDER BY t0."identifier" DESC, t0.id COLLATE BINARY ASC`)

	db := openBuildingDB(t)
	rows := queryStrings(t, db, query, params)
	require.Len(t, rows, 3)
	assert.Equal(t, "456", rows[0][1])
	assert.Equal(t, "", rows[0][2], "b2's only part is not a component")
	assert.Equal(t, "123", rows[1][1])
}

func TestCompile_FiltersAndSort(t *testing.T) {
	g := graphFor(t, "Building", compiler.Selection{
		Fields: []compiler.Field{{Name: "identifier"}},
		Join:   queryir.JoinOr,
		Filters: []compiler.FilterSpec{
			{Field: "floors", Operator: queryir.OpGT, Values: []ir.IRValue{ir.IRInt(10)}},
			{Field: "name", Operator: queryir.OpEQ, Values: []ir.IRValue{ir.IRString("Shed"), ir.IRString("Hut")}},
		},
		Sort: []compiler.SortKey{{Path: []string{"location", "wkt"}, Descending: true}},
	})
	query, params, err := NewSQLCompiler().Compile(g)
	require.NoError(t, err)

	assert.Contains(t, query, `WHERE (t0."floors" > ? OR (t0."name" = ? OR t0."name" = ?))`)
	assert.Contains(t, query, `ORDER BY t1."asWKT" DESC, t0.id COLLATE BINARY ASC`)
	assert.Equal(t, []any{int64(10), "Shed", "Hut"}, params)

	db := openBuildingDB(t)
	rows := queryStrings(t, db, query, params)
	require.Len(t, rows, 2)
	assert.Equal(t, "123", rows[0][1], "DESC puts the located building first")
}

func TestCompile_NotPortable(t *testing.T) {
	tests := []struct {
		name string
		sel  compiler.Selection
	}{
		{"path sequence", compiler.Selection{Fields: []compiler.Field{{Name: "street"}}}},
		{"literal aggregate", compiler.Selection{Fields: []compiler.Field{{Name: "floors", Aggregate: queryir.AggMax}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewSQLCompiler().Compile(graphFor(t, "Building", tt.sel))
			require.Error(t, err)
			assert.True(t, ir.IsUnsupportedOperation(err))
		})
	}
}

func TestCompile_NilGraph(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(nil)
	assert.Error(t, err)
}

func TestLiteralToParam(t *testing.T) {
	tests := []struct {
		name string
		lit  queryir.Literal
		want any
	}{
		{"string", queryir.Literal{Lexical: "a", Datatype: queryir.XSD + "string"}, "a"},
		{"integer", queryir.Literal{Lexical: "42", Datatype: queryir.XSD + "integer"}, int64(42)},
		{"decimal", queryir.Literal{Lexical: "12.5", Datatype: queryir.XSD + "decimal"}, 12.5},
		{"boolean", queryir.Literal{Lexical: "true", Datatype: queryir.XSD + "boolean"}, true},
		{"custom datatype", queryir.Literal{Lexical: "POINT(1 2)", Datatype: ex + "wkt"}, "POINT(1 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := literalToParam(tt.lit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := literalToParam(queryir.Literal{Lexical: "x", Datatype: queryir.XSD + "integer"})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Building", LocalName(ex+"Building"))
	assert.Equal(t, "Thing", LocalName("http://example.org/things/Thing"))
	assert.Equal(t, "Item", LocalName("urn:x:Item"))

	name, err := TableName(ex + "Building")
	require.NoError(t, err)
	assert.Equal(t, `"Building"`, name)

	_, err = TableName("")
	assert.True(t, ir.IsUnsupportedOperation(err))
	_, err = ColumnName(ex + "has-part")
	assert.True(t, ir.IsUnsupportedOperation(err))
}
