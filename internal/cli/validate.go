package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/querysql"
	"github.com/roach88/graphgate/internal/schema"
	"github.com/roach88/graphgate/internal/shape"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	SQLSchema bool // print the relational mapping
}

// ShapeSummary describes one node shape in validate output.
type ShapeSummary struct {
	Name        string `json:"name"`
	TargetClass string `json:"target_class"`
	Fields      int    `json:"fields"`
}

// ValidateResult is the validate command's payload.
type ValidateResult struct {
	Fingerprint string               `json:"fingerprint"`
	Files       int                  `json:"files"`
	Shapes      []ShapeSummary       `json:"shapes"`
	Warnings    []shape.CycleWarning `json:"warnings,omitempty"`
	SQLSchema   []string             `json:"sql_schema,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate CUE shape descriptions",
		Long: `Validate a directory of CUE shape descriptions.

Reports every error with its code and position, the schema fingerprint,
and shape cycles that the compiler will cut with the cycle guard.

Exit codes:
  0 - Schema valid (cycle warnings do not fail validation)
  1 - Shape description errors
  2 - Directory or CUE load error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SQLSchema, "sql-schema", false, "print CREATE TABLE statements of the relational mapping")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	res, err := loadSchema(formatter, dir)
	if err != nil {
		return err
	}

	result := summarize(res)
	if opts.SQLSchema {
		ddl, err := querysql.Schema(res.Registry)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeInternal, fmt.Sprintf("relational mapping: %v", err), nil)
		}
		result.SQLSchema = ddl
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputValidateText(formatter, result)
	return nil
}

func summarize(res *schema.Result) ValidateResult {
	result := ValidateResult{
		Fingerprint: res.Fingerprint,
		Files:       res.FileCount,
		Warnings:    res.Warnings,
	}
	for _, node := range res.Registry.Shapes() {
		result.Shapes = append(result.Shapes, ShapeSummary{
			Name:        node.Name(),
			TargetClass: node.TargetClass(),
			Fields:      node.Len(),
		})
	}
	return result
}

func outputValidateText(formatter *OutputFormatter, result ValidateResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Schema valid: %d shape(s) in %d file(s)\n", len(result.Shapes), result.Files)
	fmt.Fprintf(w, "  fingerprint: %s\n\n", result.Fingerprint)

	for _, s := range result.Shapes {
		fmt.Fprintf(w, "  %s <%s>: %d field(s)\n", s.Name, s.TargetClass, s.Fields)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "⚠ %s\n", warning.Message)
		}
	}

	if len(result.SQLSchema) > 0 {
		fmt.Fprintln(w)
		for _, stmt := range result.SQLSchema {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
	}
}
