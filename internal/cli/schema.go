package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/4miners/shift/internal/schema"
)

// SchemaOptions holds flags shared by the schema subcommands.
type SchemaOptions struct {
	*RootOptions
	DappID string
	File   string
	Output string
	DryRun bool
}

// SchemaPlan is what a schema dry run prints.
type SchemaPlan struct {
	Definitions []schema.Definition `json:"definitions,omitempty"`
	Statements  []string            `json:"statements"`
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Install, remove and check dapp table definitions",
	}

	cmd.AddCommand(newSchemaCreateCommand(rootOpts))
	cmd.AddCommand(newSchemaDropCommand(rootOpts))
	cmd.AddCommand(newSchemaValidateCommand(rootOpts))

	return cmd
}

func newSchemaCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a dapp's tables and indexes",
		Long: `Create the tables and indexes listed in a definitions file (JSON or YAML)
inside the dapp's namespace.

The namespaced definitions are printed, or written to --output, in the form
"schema drop" expects.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DappID, "dapp", "", "dapp identifier (required)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "definitions file (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the namespaced definitions to this file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the SQL without executing it")
	_ = cmd.MarkFlagRequired("dapp")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSchemaCreate(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	defs, err := loadDefinitions(opts.File, true)
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Loaded %d definition(s) from %s", len(defs), opts.File)

	r, err := openRuntime(cmd.Context(), opts.RootOptions, cmd, !opts.DryRun)
	if err != nil {
		return fail(formatter, err)
	}
	defer r.Close()

	if opts.DryRun {
		applied, stmts, err := r.gateway.PlanCreateTables(opts.DappID, defs)
		if err != nil {
			return fail(formatter, err)
		}
		return outputSchemaPlan(formatter, SchemaPlan{Definitions: applied, Statements: stmts})
	}

	applied, err := r.gateway.CreateTables(cmd.Context(), opts.DappID, defs)
	if err != nil {
		return fail(formatter, err)
	}

	if opts.Output != "" {
		if err := writeDefinitions(applied, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(applied)
	}
	fmt.Fprintf(formatter.Writer, "✓ Created %d schema object(s) for dapp %s\n", len(applied), opts.DappID)
	for _, def := range applied {
		fmt.Fprintf(formatter.Writer, "  %s %s\n", def.Type, def.ObjectName())
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote namespaced definitions to %s\n", opts.Output)
	}
	return nil
}

func newSchemaDropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop a dapp's tables and indexes",
		Long: `Drop the schema objects listed in a namespaced definitions file, as written
by "schema create --output". Names are used as given; they are not
prefixed again.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaDrop(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DappID, "dapp", "", "dapp identifier, recorded in logs (required)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "namespaced definitions file (required)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the SQL without executing it")
	_ = cmd.MarkFlagRequired("dapp")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSchemaDrop(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	defs, err := loadDefinitions(opts.File, false)
	if err != nil {
		return fail(formatter, err)
	}

	r, err := openRuntime(cmd.Context(), opts.RootOptions, cmd, !opts.DryRun)
	if err != nil {
		return fail(formatter, err)
	}
	defer r.Close()

	if opts.DryRun {
		stmts, err := r.gateway.PlanDropTables(defs)
		if err != nil {
			return fail(formatter, err)
		}
		return outputSchemaPlan(formatter, SchemaPlan{Statements: stmts})
	}

	if err := r.gateway.DropTables(cmd.Context(), opts.DappID, defs); err != nil {
		return fail(formatter, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]int{"dropped": len(defs)})
	}
	fmt.Fprintf(formatter.Writer, "✓ Dropped schema for dapp %s\n", opts.DappID)
	return nil
}

func newSchemaValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <file>",
		Short:         "Check a definitions file without touching a database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			defs, err := loadDefinitions(args[0], true)
			if err != nil {
				return fail(formatter, err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]any{"valid": true, "definitions": len(defs)})
			}
			fmt.Fprintf(formatter.Writer, "✓ %d definition(s) valid\n", len(defs))
			return nil
		},
	}

	return cmd
}

// schemaError marks a definitions file that failed structural validation.
type schemaError struct {
	err error
}

func (e *schemaError) Error() string { return e.err.Error() }
func (e *schemaError) Unwrap() error { return e.err }

// loadDefinitions reads a definitions file. Install-form files are checked
// against the definitions schema first.
func loadDefinitions(path string, installForm bool) ([]schema.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := schema.FormatFromPath(path)
	if installForm {
		if err := schema.Validate(data, format); err != nil {
			return nil, &schemaError{err: err}
		}
	}
	defs, err := schema.Load(bytes.NewReader(data), format)
	if err != nil {
		return nil, &schemaError{err: err}
	}
	return defs, nil
}

func outputSchemaPlan(formatter *OutputFormatter, plan SchemaPlan) error {
	if formatter.Format == "json" {
		if plan.Statements == nil {
			plan.Statements = []string{}
		}
		return formatter.Success(plan)
	}
	for _, stmt := range plan.Statements {
		fmt.Fprintln(formatter.Writer, stmt)
	}
	return nil
}

// writeDefinitions writes namespaced definitions as indented JSON.
func writeDefinitions(defs []schema.Definition, filename string) error {
	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling definitions: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
