package cli

import (
	"github.com/spf13/cobra"

	"github.com/4miners/shift/internal/gateway"
	"github.com/4miners/shift/internal/sandbox"
	"github.com/4miners/shift/internal/schema"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	DappID    string
	File      string
	BatchSize int
	DryRun    bool
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Bulk-insert rows into a dapp table",
		Long: `Bulk-insert rows into a dapp table from a JSON or YAML payload:

  {"table": "accounts", "fields": {"address": "id"}, "values": [["a"], ["b"]]}

Rows are sent in chunks; a failed chunk stops the batch and earlier chunks
stay applied.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DappID, "dapp", "", "dapp identifier (required)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "-", "payload file (.json, .yaml), - for JSON on stdin")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "rows per statement (default from config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the SQL without executing it")
	_ = cmd.MarkFlagRequired("dapp")

	return cmd
}

func runBatch(opts *BatchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := readInput(cmd, opts.File)
	if err != nil {
		return fail(formatter, err)
	}
	req, err := sandbox.NewRequest(opts.DappID, data)
	if err != nil {
		return fail(formatter, err)
	}
	yaml := opts.File != "-" && schema.FormatFromPath(opts.File) == schema.FormatYAML

	r, err := openRuntime(cmd.Context(), opts.RootOptions, cmd, !opts.DryRun)
	if err != nil {
		return fail(formatter, err)
	}
	defer r.Close()

	// JSON payloads arrive the way a dapp sends them, through the adapter.
	if !yaml && !opts.DryRun {
		res, err := r.adapter.Call(cmd.Context(), sandbox.MethodBatch, req)
		if err != nil {
			return fail(formatter, err)
		}
		return formatter.Result(res.(gateway.Result), false)
	}

	var p gateway.BatchPayload
	if yaml {
		p, err = gateway.DecodeBatchYAML(data)
	} else {
		p, err = gateway.DecodeBatch(data)
	}
	if err != nil {
		return fail(formatter, err)
	}
	p.DappID = req.DappID

	if opts.DryRun {
		stmts, err := r.gateway.PlanBatch(p)
		if err != nil {
			return fail(formatter, err)
		}
		return formatter.Statements(stmts)
	}

	formatter.VerboseLog("Inserting %d row(s) into %s for dapp %s", len(p.Values), p.Table, p.DappID)
	res, err := r.gateway.Batch(cmd.Context(), p)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.Result(res, false)
}
