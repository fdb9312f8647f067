package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/pipeline"
)

// Scenario defines a conformance test scenario: a schema, a client query
// and the expected outcome of compiling it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an inline CUE shape description.
	Schema string `yaml:"schema,omitempty"`

	// SchemaDir is a directory of CUE files, relative to the scenario file.
	SchemaDir string `yaml:"schema_dir,omitempty"`

	// Query is the GraphQL document to compile.
	Query string `yaml:"query"`

	// Operation selects an operation when the document has several.
	Operation string `yaml:"operation,omitempty"`

	// Variables are the GraphQL variable values.
	Variables map[string]any `yaml:"variables,omitempty"`

	// Backend is "sparql" (default) or "sql".
	Backend string `yaml:"backend,omitempty"`

	// GuardScope is "compile" (default) or "branch".
	GuardScope string `yaml:"guard_scope,omitempty"`

	// CompileID is the fixed compile id. Defaults to "test-compile-default".
	CompileID string `yaml:"compile_id,omitempty"`

	// Expect declares an expected failure. Nil means compilation must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the compiled outputs.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies an expected compile error.
type ExpectClause struct {
	// Error is the expected error kind (e.g. "SCHEMA_ERROR").
	Error string `yaml:"error"`

	// Code optionally pins the error code (e.g. "E202").
	Code string `yaml:"code,omitempty"`
}

// Assertion validates one compiled output.
type Assertion struct {
	// Type specifies the assertion type:
	// - "query_contains": query text contains Text
	// - "query_order": Texts appear in the query in order
	// - "graph_size": graph has Vertices vertices and/or Edges edges
	// - "params": SQL parameters equal Params
	Type string `yaml:"type"`

	// Field selects the output by response key. Empty selects the first.
	Field string `yaml:"field,omitempty"`

	Text     string   `yaml:"text,omitempty"`
	Texts    []string `yaml:"texts,omitempty"`
	Vertices *int     `yaml:"vertices,omitempty"`
	Edges    *int     `yaml:"edges,omitempty"`
	Params   []any    `yaml:"params,omitempty"`
}

// Assertion type constants.
const (
	AssertQueryContains = "query_contains"
	AssertQueryOrder    = "query_order"
	AssertGraphSize     = "graph_size"
	AssertParams        = "params"
)

var errorKinds = map[string]bool{
	string(ir.KindSchema):               true,
	string(ir.KindUnsupportedOperation): true,
	string(ir.KindTypeMismatch):         true,
	string(ir.KindConstraintViolation):  true,
}

// LoadScenario reads and parses a scenario YAML file. schema_dir is
// resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema_dir relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.SchemaDir != "" && !filepath.IsAbs(scenario.SchemaDir) && basePath != "" {
		scenario.SchemaDir = filepath.Join(basePath, scenario.SchemaDir)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}

	switch {
	case s.Schema == "" && s.SchemaDir == "":
		return fmt.Errorf("one of schema or schema_dir is required")
	case s.Schema != "" && s.SchemaDir != "":
		return fmt.Errorf("schema and schema_dir are mutually exclusive")
	case s.SchemaDir != "":
		if _, err := os.Stat(s.SchemaDir); os.IsNotExist(err) {
			return fmt.Errorf("schema directory not found: %s", s.SchemaDir)
		}
	}

	if _, err := pipeline.ParseBackend(s.Backend); err != nil {
		return err
	}
	if _, ok := compiler.ParseGuardScope(s.GuardScope); !ok {
		return fmt.Errorf("unknown guard_scope %q (want compile or branch)", s.GuardScope)
	}

	if s.Expect != nil {
		if !errorKinds[s.Expect.Error] {
			return fmt.Errorf("expect.error: unknown error kind %q", s.Expect.Error)
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions cannot be combined with an expected error")
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertQueryContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for query_contains", index)
		}
	case AssertQueryOrder:
		if len(a.Texts) < 2 {
			return fmt.Errorf("assertions[%d]: at least two texts are required for query_order", index)
		}
	case AssertGraphSize:
		if a.Vertices == nil && a.Edges == nil {
			return fmt.Errorf("assertions[%d]: vertices or edges is required for graph_size", index)
		}
	case AssertParams:
		if a.Params == nil {
			return fmt.Errorf("assertions[%d]: params is required for params", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
