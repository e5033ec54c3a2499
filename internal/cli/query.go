package cli

import (
	"github.com/spf13/cobra"

	"github.com/4miners/shift/internal/gateway"
	"github.com/4miners/shift/internal/queryir"
	"github.com/4miners/shift/internal/sandbox"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	DappID string
	File   string
	DryRun bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <select|insert|update|remove>",
		Short: "Run a JSON query descriptor for a dapp",
		Long: `Run a JSON query descriptor against the dapp's namespaced tables.

Table names in the descriptor are written without the dapp prefix; they are
namespaced before the statement is built. With --dry-run the statement and
its parameters are printed instead of executed, and no database is needed.`,
		Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:     []string{queryir.ActionSelect, queryir.ActionInsert, queryir.ActionUpdate, queryir.ActionRemove},
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DappID, "dapp", "", "dapp identifier (required)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "-", "descriptor file, - for stdin")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the SQL without executing it")
	_ = cmd.MarkFlagRequired("dapp")

	return cmd
}

func runQuery(opts *QueryOptions, action string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	body, err := readInput(cmd, opts.File)
	if err != nil {
		return fail(formatter, err)
	}
	req, err := sandbox.NewRequest(opts.DappID, body)
	if err != nil {
		return fail(formatter, err)
	}

	r, err := openRuntime(cmd.Context(), opts.RootOptions, cmd, !opts.DryRun)
	if err != nil {
		return fail(formatter, err)
	}
	defer r.Close()

	if opts.DryRun {
		sql, params, err := r.gateway.Compile(action, gateway.Request{DappID: req.DappID, Body: req.Body})
		if err != nil {
			return fail(formatter, err)
		}
		return formatter.Plan(QueryPlan{SQL: sql, Params: params})
	}

	formatter.VerboseLog("Running %s for dapp %s", action, req.DappID)
	res, err := r.adapter.Call(cmd.Context(), action, req)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.Result(res.(gateway.Result), action == queryir.ActionSelect)
}
