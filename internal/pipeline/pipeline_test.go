package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/testutil"
)

const scenario = `{
	building(filter: {identifier: {eq: "123"}}) {
		identifier
		location { wkt }
	}
}`

func newCompiler(ids ...string) *compiler.Compiler {
	return compiler.New(testutil.BuildingRegistry(),
		compiler.WithIDGenerator(compiler.NewFixedGenerator(ids...)))
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendSPARQL, false},
		{"sparql", BackendSPARQL, false},
		{"sql", BackendSQL, false},
		{"cypher", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_SPARQL(t *testing.T) {
	out, err := Run(newCompiler("c-1"), scenario, "", nil, BackendSPARQL)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "building", out[0].Field)
	assert.Equal(t, "c-1", out[0].CompileID)
	assert.Equal(t, BackendSPARQL, out[0].Backend)
	assert.NotEmpty(t, out[0].Fingerprint)
	assert.Contains(t, out[0].Query, `FILTER(?x1 = "123")`)
	assert.Nil(t, out[0].Params)
	assert.Empty(t, out[0].Warnings)
	assert.Equal(t, 2, out[0].Vertices)
	assert.Equal(t, 3, out[0].Edges)
}

func TestRun_SQL(t *testing.T) {
	out, err := Run(newCompiler("c-1"), scenario, "", nil, BackendSQL)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Contains(t, out[0].Query, `WHERE t0."identifier" = ?`)
	assert.Equal(t, []any{"123"}, out[0].Params)
}

func TestRun_FingerprintIndependentOfBackend(t *testing.T) {
	sparql, err := Run(newCompiler("c-1"), scenario, "", nil, BackendSPARQL)
	require.NoError(t, err)
	sql, err := Run(newCompiler("c-2"), scenario, "", nil, BackendSQL)
	require.NoError(t, err)

	assert.Equal(t, sparql[0].Fingerprint, sql[0].Fingerprint)
}

func TestRun_MultipleRootFields(t *testing.T) {
	out, err := Run(newCompiler("c-1", "c-2"), `{ building { identifier } part { label } }`, "", nil, BackendSPARQL)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "building", out[0].Field)
	assert.Equal(t, "c-1", out[0].CompileID)
	assert.Equal(t, "part", out[1].Field)
	assert.Equal(t, "c-2", out[1].CompileID)
}

func TestRun_Variables(t *testing.T) {
	query := `query Find($id: String) { building(filter: {identifier: $id}) { identifier } }`
	vars := ir.IRObject{"id": ir.IRString("456")}

	out, err := Run(newCompiler("c-1"), query, "Find", vars, BackendSQL)
	require.NoError(t, err)
	assert.Equal(t, []any{"456"}, out[0].Params)
}

func TestRun_PortabilityWarnings(t *testing.T) {
	query := `{ building { street } }`

	out, err := Run(newCompiler("c-1"), query, "", nil, BackendSPARQL)
	require.NoError(t, err)
	require.Len(t, out[0].Warnings, 1)
	assert.Contains(t, out[0].Warnings[0], "street")

	_, err = Run(newCompiler("c-2"), query, "", nil, BackendSQL)
	require.Error(t, err)
	assert.True(t, ir.IsUnsupportedOperation(err))
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(error) bool
	}{
		{"syntax", `{ building {`, ir.IsUnsupportedOperation},
		{"unknown root", `{ tower { height } }`, ir.IsSchemaError},
		{"unknown field", `{ building { colour } }`, ir.IsSchemaError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(newCompiler("c-1"), tt.query, "", nil, BackendSPARQL)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestSerialize_UnknownBackend(t *testing.T) {
	c := newCompiler("c-1")
	g, err := c.Compile(testutil.MustShape(c.Registry(), "Building"),
		compiler.Selection{Fields: []compiler.Field{{Name: "identifier"}}})
	require.NoError(t, err)

	_, _, err = Serialize(g, "cypher")
	assert.Error(t, err)
}
