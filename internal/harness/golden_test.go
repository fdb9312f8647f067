package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/pipeline"
)

func TestSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   string
	}{
		{
			name: "outputs",
			result: &Result{Outputs: []pipeline.Output{
				{Field: "building", Backend: pipeline.BackendSPARQL, CompileID: "c-1", Query: "CONSTRUCT {}\nWHERE {}\n"},
				{Field: "part", Backend: pipeline.BackendSQL, CompileID: "c-2", Query: "SELECT 1", Params: []any{int64(3), "x"}},
			}},
			want: "# building (sparql, c-1)\nCONSTRUCT {}\nWHERE {}\n" +
				"\n# part (sql, c-2)\nSELECT 1\n-- params: [3,\"x\"]\n",
		},
		{
			name:   "error with code",
			result: &Result{ErrorKind: "TYPE_MISMATCH", ErrorCode: "E202"},
			want:   "error: TYPE_MISMATCH [E202]\n",
		},
		{
			name:   "error without code",
			result: &Result{ErrorKind: "SCHEMA_ERROR"},
			want:   "error: SCHEMA_ERROR\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Snapshot(tt.result)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/unknown_field.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "unknown_field", result))
}
