package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the text stored in golden files: one block
// per output with the field, backend and compile id, the query, and for
// SQL the parameters. A failed compilation renders its error kind and code.
func Snapshot(result *Result) ([]byte, error) {
	var b strings.Builder
	if result.ErrorKind != "" {
		fmt.Fprintf(&b, "error: %s", result.ErrorKind)
		if result.ErrorCode != "" {
			fmt.Fprintf(&b, " [%s]", result.ErrorCode)
		}
		b.WriteString("\n")
		return []byte(b.String()), nil
	}

	for i, out := range result.Outputs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s (%s, %s)\n", out.Field, out.Backend, out.CompileID)
		b.WriteString(out.Query)
		if !strings.HasSuffix(out.Query, "\n") {
			b.WriteString("\n")
		}
		if len(out.Params) > 0 {
			params, err := json.Marshal(out.Params)
			if err != nil {
				return nil, fmt.Errorf("marshal params: %w", err)
			}
			fmt.Fprintf(&b, "-- params: %s\n", params)
		}
	}
	return []byte(b.String()), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
