package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/pipeline"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Schema     string // schema directory
	Query      string // inline GraphQL document
	File       string // GraphQL document file
	Vars       string // variables as a JSON object
	Operation  string // operation name
	Backend    string // sparql | sql
	GuardScope string // compile | branch
	MaxEdges   int    // query graph edge limit
	Output     string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a GraphQL query to SPARQL or SQL",
		Long: `Compile a GraphQL query against a schema directory of CUE shape
descriptions and print the query text for the chosen backend.

Exit codes:
  0 - Query compiled
  1 - Compile error or invalid schema
  2 - Command error (bad flags, missing files)

Examples:
  graphgate compile --schema ./schema --query '{ building { identifier } }'
  graphgate compile --schema ./schema --file query.graphql --backend sql
  graphgate compile --schema ./schema --file query.graphql --vars '{"id": "123"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema directory of CUE shape descriptions")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "GraphQL document")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "file containing the GraphQL document")
	cmd.Flags().StringVar(&opts.Vars, "vars", "", "variables as a JSON object")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name when the document has several")
	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", string(pipeline.BackendSPARQL), "query language (sparql|sql)")
	cmd.Flags().StringVar(&opts.GuardScope, "guard-scope", "compile", "cycle guard scope (compile|branch)")
	cmd.Flags().IntVar(&opts.MaxEdges, "max-edges", compiler.DefaultMaxEdges, "maximum edges in one query graph (0 disables)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled queries to a JSON file")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	query, err := readQuery(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
	}
	backend, err := pipeline.ParseBackend(opts.Backend)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
	}
	scope, ok := compiler.ParseGuardScope(opts.GuardScope)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeUsage,
			fmt.Sprintf("unknown guard scope %q (want compile or branch)", opts.GuardScope), nil)
	}
	var vars ir.IRObject
	if opts.Vars != "" {
		vars, err = ir.UnmarshalVariables([]byte(opts.Vars))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, fmt.Sprintf("--vars: %v", err), nil)
		}
	}

	res, err := loadSchema(formatter, opts.Schema)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		formatter.VerboseLog("Cycle warning: %s", w.Message)
	}

	c := compiler.New(res.Registry,
		compiler.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
		compiler.WithGuardScope(scope),
		compiler.WithMaxEdges(opts.MaxEdges),
	)
	outputs, err := pipeline.Run(c, query, opts.Operation, vars, backend)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	if opts.Output != "" {
		if err := writeOutputs(outputs, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, outputs, opts.Output)
}

// readQuery returns the GraphQL document from --query or --file.
func readQuery(opts *CompileOptions) (string, error) {
	switch {
	case opts.Query != "" && opts.File != "":
		return "", errors.New("--query and --file are mutually exclusive")
	case opts.Query != "":
		return opts.Query, nil
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("one of --query or --file is required")
	}
}

// CompileErrorDetails is the JSON detail of a compile error.
type CompileErrorDetails struct {
	Kind  string `json:"kind"`
	Shape string `json:"shape,omitempty"`
	Field string `json:"field,omitempty"`
}

// outputCompileError reports a compile error. Typed errors are client
// errors (exit 1); anything else is an internal failure.
func outputCompileError(formatter *OutputFormatter, err error) error {
	var irErr *ir.Error
	if !errors.As(err, &irErr) {
		return formatter.Fail(ExitFailure, ErrCodeInternal, err.Error(), nil)
	}

	code := irErr.Code
	if code == "" {
		code = string(irErr.Kind)
	}
	_ = formatter.Error(code, irErr.Error(), CompileErrorDetails{
		Kind:  string(irErr.Kind),
		Shape: irErr.Shape,
		Field: irErr.Field,
	})
	return WrapExitError(ExitFailure, "compile failed", err)
}

// outputCompileSuccess prints the compiled queries.
func outputCompileSuccess(formatter *OutputFormatter, outputs []pipeline.Output, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(outputs)
	}

	w := formatter.Writer
	for i, out := range outputs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s (%s) compile_id=%s\n", out.Field, out.Backend, out.CompileID)
		fmt.Fprintf(w, "-- fingerprint %s\n", out.Fingerprint)
		fmt.Fprintln(w, strings.TrimRight(out.Query, "\n"))
		if len(out.Params) > 0 {
			params, err := json.Marshal(out.Params)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "-- params: %s\n", params)
		}
		for _, warning := range out.Warnings {
			fmt.Fprintf(w, "-- warning: %s\n", warning)
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote %d compiled quer%s to %s\n", len(outputs), plural(len(outputs), "y", "ies"), outputFile)
	}
	return nil
}

// writeOutputs writes the compiled queries to a file as indented JSON.
func writeOutputs(outputs []pipeline.Output, filename string) error {
	data, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling outputs: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
