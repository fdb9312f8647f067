package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/graphgate/internal/schema"
)

// loadSchema loads a schema directory, collecting every error.
func loadSchema(formatter *OutputFormatter, dir string) (*schema.Result, error) {
	if dir == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeUsage, "--schema is required", nil)
	}

	result, errs := schema.LoadDir(dir, schema.LoadModeCollectAll)
	if len(errs) == 0 {
		formatter.VerboseLog("Loaded %d shape(s) from %d CUE file(s) in %s",
			result.Registry.Len(), result.FileCount, dir)
		return result, nil
	}
	return nil, outputSchemaErrors(formatter, errs)
}

// SchemaErrorInfo is the JSON form of one schema error.
type SchemaErrorInfo struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// describeSchemaError extracts a code, message and file location.
func describeSchemaError(err error) SchemaErrorInfo {
	var loadErr *schema.LoadError
	if !errors.As(err, &loadErr) {
		return SchemaErrorInfo{Code: schema.ErrCodeGeneric, Message: err.Error()}
	}
	info := SchemaErrorInfo{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		info.Location = fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	return info
}

// outputSchemaErrors reports every schema error. Errors in the shape
// descriptions exit with ExitFailure; anything else means the directory
// could not be loaded.
func outputSchemaErrors(formatter *OutputFormatter, errs []error) error {
	exitCode := ExitFailure
	infos := make([]SchemaErrorInfo, len(errs))
	for i, err := range errs {
		infos[i] = describeSchemaError(err)
		var compileErr *schema.CompileError
		if !errors.As(err, &compileErr) {
			exitCode = ExitCommandError
		}
	}

	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: infos[0].Code, Message: infos[0].Message},
			Data:   infos,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Schema invalid")
		fmt.Fprintln(formatter.Writer)
		for _, info := range infos {
			if info.Location != "" {
				fmt.Fprintln(formatter.Writer, info.Location)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", info.Code, info.Message)
		}
	}

	return NewExitError(exitCode, fmt.Sprintf("schema failed with %d error(s)", len(errs)))
}
