package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/pipeline"
	"github.com/roach88/graphgate/internal/schema"
	"github.com/roach88/graphgate/internal/shape"
	"github.com/roach88/graphgate/internal/testutil"
)

// epoch starts the deterministic clock of every scenario.
var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the inline schema or load schema_dir
//  2. Translate, compile and serialize the query with a fixed compile id
//  3. Check the expected error, or evaluate the assertions
//
// A schema that fails to load is an execution error, not a scenario
// failure. Untyped compile errors are execution errors too.
func Run(scenario *Scenario) (*Result, error) {
	reg, err := loadRegistry(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	backend, err := pipeline.ParseBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	scope, ok := compiler.ParseGuardScope(scenario.GuardScope)
	if !ok {
		return nil, fmt.Errorf("unknown guard_scope %q", scenario.GuardScope)
	}
	vars, err := convertVariables(scenario.Variables)
	if err != nil {
		return nil, err
	}

	c := compiler.New(reg,
		compiler.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.CompileID)),
		compiler.WithClock(testutil.NewStepClock(epoch, time.Millisecond).Now),
		compiler.WithGuardScope(scope),
	)

	result := NewResult()
	outputs, err := pipeline.Run(c, scenario.Query, scenario.Operation, vars, backend)
	if err != nil {
		var irErr *ir.Error
		if !errors.As(err, &irErr) {
			return nil, fmt.Errorf("compile: %w", err)
		}
		result.ErrorKind = string(irErr.Kind)
		result.ErrorCode = irErr.Code
		result.ErrorMessage = irErr.Error()
		checkExpectedError(scenario.Expect, result)
		return result, nil
	}

	result.Outputs = outputs
	if scenario.Expect != nil {
		result.AddError(fmt.Sprintf("expected %s, but the query compiled", scenario.Expect.Error))
		return result, nil
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadRegistry(s *Scenario) (*shape.Registry, error) {
	if s.Schema != "" {
		return schema.CompileString(s.Schema, s.Name+".cue")
	}
	res, errs := schema.LoadDir(s.SchemaDir, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res.Registry, nil
}

func checkExpectedError(expect *ExpectClause, result *Result) {
	if expect == nil {
		result.AddError(fmt.Sprintf("unexpected error: %s", result.ErrorMessage))
		return
	}
	if result.ErrorKind != expect.Error {
		result.AddError(fmt.Sprintf("expected %s, got %s", expect.Error, result.ErrorMessage))
		return
	}
	if expect.Code != "" && result.ErrorCode != expect.Code {
		result.AddError(fmt.Sprintf("expected error code %s, got %q", expect.Code, result.ErrorCode))
	}
}

// convertVariables converts YAML-decoded variables to an IRObject.
func convertVariables(vars map[string]any) (ir.IRObject, error) {
	obj := make(ir.IRObject, len(vars))
	for k, v := range vars {
		value, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		obj[k] = value
	}
	return obj, nil
}
