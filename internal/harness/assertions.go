package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/graphgate/internal/pipeline"
)

// AssertionError is returned when an assertion fails.
// It includes the compiled query to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Query    string // Compiled query for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Query != "" {
		fmt.Fprintf(&buf, "\nQuery:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Query, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		out, err := selectOutput(result.Outputs, a.Field)
		if err == nil {
			err = evaluate(out, a)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func selectOutput(outputs []pipeline.Output, field string) (pipeline.Output, error) {
	if len(outputs) == 0 {
		return pipeline.Output{}, fmt.Errorf("no compiled outputs")
	}
	if field == "" {
		return outputs[0], nil
	}
	for _, out := range outputs {
		if out.Field == field {
			return out, nil
		}
	}
	return pipeline.Output{}, fmt.Errorf("no output for field %q", field)
}

func evaluate(out pipeline.Output, a Assertion) error {
	switch a.Type {
	case AssertQueryContains:
		return assertQueryContains(out, a)
	case AssertQueryOrder:
		return assertQueryOrder(out, a)
	case AssertGraphSize:
		return assertGraphSize(out, a)
	case AssertParams:
		return assertParams(out, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertQueryContains checks that the query text contains a.Text.
func assertQueryContains(out pipeline.Output, a Assertion) error {
	if strings.Contains(out.Query, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueryContains,
		Expected: fmt.Sprintf("query containing %q", a.Text),
		Actual:   "not found",
		Query:    out.Query,
	}
}

// assertQueryOrder checks that a.Texts appear in order. Texts need not be
// adjacent.
func assertQueryOrder(out pipeline.Output, a Assertion) error {
	rest := out.Query
	for i, text := range a.Texts {
		idx := strings.Index(rest, text)
		if idx < 0 {
			actual := fmt.Sprintf("missing text: %q", text)
			if strings.Contains(out.Query, text) {
				actual = fmt.Sprintf("%q appears before %q", text, a.Texts[i-1])
			}
			return &AssertionError{
				Type:     AssertQueryOrder,
				Expected: fmt.Sprintf("texts in order: %q", a.Texts),
				Actual:   actual,
				Query:    out.Query,
			}
		}
		rest = rest[idx+len(text):]
	}
	return nil
}

// assertGraphSize checks the vertex and edge counts of the query graph.
func assertGraphSize(out pipeline.Output, a Assertion) error {
	if a.Vertices != nil && *a.Vertices != out.Vertices {
		return &AssertionError{
			Type:     AssertGraphSize,
			Expected: fmt.Sprintf("%d vertices", *a.Vertices),
			Actual:   fmt.Sprintf("%d vertices", out.Vertices),
		}
	}
	if a.Edges != nil && *a.Edges != out.Edges {
		return &AssertionError{
			Type:     AssertGraphSize,
			Expected: fmt.Sprintf("%d edges", *a.Edges),
			Actual:   fmt.Sprintf("%d edges", out.Edges),
		}
	}
	return nil
}

// assertParams compares SQL parameters by their JSON form, so YAML ints
// match int64 parameters.
func assertParams(out pipeline.Output, a Assertion) error {
	want, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	params := out.Params
	if params == nil {
		params = []any{}
	}
	got, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if string(want) == string(got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertParams,
		Expected: string(want),
		Actual:   string(got),
		Query:    out.Query,
	}
}
