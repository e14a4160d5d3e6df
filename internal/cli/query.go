package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/eventscope/internal/processor"
	"github.com/roach88/eventscope/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	SQL string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <scenario.yaml>",
		Short: "Run SQL against an in-memory mirror of the processed scenario",
		Long: `Process a scenario while mirroring the log and interval index into an
in-memory SQLite database, then run one SQL statement against it.

Tables:
  events(step, idx, ts, kind, source, subject, props, synthetic)
  intervals(id, category, subject, start_step, start_idx, start_ts,
            end_step, end_idx, end_ts, pending)

Examples:
  eventscope query ./scenarios/cascade.yaml --sql "SELECT kind, COUNT(*) FROM events GROUP BY kind"
  eventscope query ./scenarios/cascade.yaml --sql "SELECT subject FROM intervals WHERE pending = 1"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SQL, "sql", "", "SQL statement to run (required)")
	_ = cmd.MarkFlagRequired("sql")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	s, err := loadScenario(path)
	if err != nil {
		return err
	}

	mirror, err := store.Open(opts.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open mirror", err)
	}
	defer func() {
		if closeErr := mirror.Close(); closeErr != nil {
			opts.logger().Error("error closing mirror", "error", closeErr)
		}
	}()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	attach := func(p *processor.Processor) error {
		return mirror.Attach(ctx, p.Log(), p.Index())
	}
	if _, err := execute(ctx, opts.RootOptions, s, executeOptions{attach: attach}); err != nil {
		return err
	}
	if err := mirror.Err(); err != nil {
		return WrapExitError(ExitFailure, "mirror out of sync", err)
	}

	res, err := mirror.Query(ctx, opts.SQL)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	return opts.formatter(cmd).Table(res.Columns, res.Rows)
}
