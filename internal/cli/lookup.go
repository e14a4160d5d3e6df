package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/interval"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Category string
	From     int64
	To       int64
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup <scenario.yaml>",
		Short: "List intervals overlapping a time window",
		Long: `Process a scenario, then list every interval of one category that
overlaps the window [from, to]. Pending intervals extend to the present.

Categories: node_exists, node_color, node_activity, message_pass

Examples:
  eventscope lookup ./scenarios/cascade.yaml --category node_exists --from 0 --to 10
  eventscope lookup ./scenarios/cascade.yaml --category message_pass --from 3 --to 3 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "interval category (required)")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "window start timestamp (µs)")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "window end timestamp (µs)")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runLookup(opts *LookupOptions, path string, cmd *cobra.Command) error {
	category, ok := interval.ParseCategory(opts.Category)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown category %q", opts.Category))
	}
	if opts.To < opts.From {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid window: --to %d is before --from %d", opts.To, opts.From))
	}

	s, err := loadScenario(path)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	x, err := execute(ctx, opts.RootOptions, s, executeOptions{})
	if err != nil {
		return err
	}

	matches := x.Processor().Index().Lookup(category, event.Timestamp(opts.From), event.Timestamp(opts.To))
	opts.formatter(cmd).VerboseLog("%d %s intervals overlap [%d, %d]", len(matches), category, opts.From, opts.To)

	return opts.formatter(cmd).Table([]string{"subject", "start", "end"}, lookupRows(matches))
}

func lookupRows(ivs []*interval.Interval) [][]string {
	rows := make([][]string, 0, len(ivs))
	for _, iv := range ivs {
		end := "pending"
		if !iv.Pending() {
			end = strconv.FormatInt(int64(iv.EndTime()), 10)
		}
		rows = append(rows, []string{
			iv.Subject(),
			strconv.FormatInt(int64(iv.StartTime()), 10),
			end,
		})
	}
	return rows
}
