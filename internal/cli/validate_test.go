package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_Valid(t *testing.T) {
	out, err := executeValidate(t, "text", buildingSchema)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Schema valid: 4 shape(s) in 2 file(s)")
	assert.Contains(t, out, "fingerprint: ")
	assert.Contains(t, out, "Building <http://example.org/def#Building>: 6 field(s)")
	assert.Contains(t, out, "Part <http://example.org/def#Part>: 2 field(s)")
	assert.Contains(t, out, "⚠ Shape cycle detected")
	assert.NotContains(t, out, "CREATE TABLE")
}

func TestValidate_JSON(t *testing.T) {
	out, err := executeValidate(t, "json", buildingSchema, "--sql-schema")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ValidateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Shapes, 4)
	assert.Equal(t, 2, resp.Data.Files)
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Len(t, resp.Data.Warnings, 1)
	assert.NotEmpty(t, resp.Data.SQLSchema)
}

func TestValidate_SQLSchema(t *testing.T) {
	out, err := executeValidate(t, "text", buildingSchema, "--sql-schema")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE "Building" (`)
}

func TestValidate_FingerprintStable(t *testing.T) {
	first, err := executeValidate(t, "json", buildingSchema)
	require.NoError(t, err)
	second, err := executeValidate(t, "json", buildingSchema)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		wantExit int
		wantCode string
	}{
		{
			name:     "empty directory",
			files:    map[string]string{},
			wantExit: ExitCommandError,
			wantCode: "E003",
		},
		{
			name:     "no shapes",
			files:    map[string]string{"a.cue": "package a\n\nprefixes: ex: \"http://example.org/def#\"\n"},
			wantExit: ExitFailure,
			wantCode: "E100",
		},
		{
			name:     "unknown prefix",
			files:    map[string]string{"a.cue": "package a\n\nshape: Building: {target: \"zz:Building\"}\n"},
			wantExit: ExitFailure,
			wantCode: "E103",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
			}

			out, err := executeValidate(t, "json", dir)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(`package a

shape: A: {target: "zz:A"}
shape: B: {target: "yy:B"}
`), 0o644))

	out, err := executeValidate(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, "schema failed with 2 error(s)", err.Error())
	assert.Contains(t, out, `unknown prefix "zz"`)
	assert.Contains(t, out, `unknown prefix "yy"`)
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, err := executeValidate(t, "text", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}
