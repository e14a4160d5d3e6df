package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/eventscope/internal/harness"
	"github.com/roach88/eventscope/internal/interval"
	"github.com/roach88/eventscope/internal/processor"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Metrics bool
	Strict  bool
}

// RunSummary is the outcome of processing one scenario.
type RunSummary struct {
	Scenario    string          `json:"scenario"`
	Session     string          `json:"session"`
	Inputs      int             `json:"inputs"`
	Accepted    int             `json:"accepted"`
	Committed   int             `json:"committed"`
	Synthesized int             `json:"synthesized"`
	FirstTS     *int64          `json:"first_ts,omitempty"`
	LastTS      *int64          `json:"last_ts,omitempty"`
	Rejected    []RejectedEvent `json:"rejected"`
	Intervals   []IntervalCount `json:"intervals"`
	Failures    []string        `json:"failures,omitempty"`
	Metrics     []MetricSample  `json:"metrics,omitempty"`
}

// RejectedEvent describes one input event the processor refused.
type RejectedEvent struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IntervalCount is the size of one interval category.
type IntervalCount struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
	Pending  int    `json:"pending"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Process a scenario and summarize the result",
		Long: `Feed a scenario's events through the processor and print what was
committed, what was rejected, and how many intervals each category holds.

Rejected events are skipped unless --strict (or EVENTSCOPE_STRICT) is set,
in which case processing stops at the first one.

Exit codes:
  0 - Processed; every expectation held
  1 - Rejected event under --strict, or a failed expectation
  2 - Command error (missing file, malformed scenario)

Examples:
  eventscope run ./scenarios/cascade.yaml
  eventscope run ./scenarios/cascade.yaml --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print processor metrics")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "stop at the first rejected event")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	s, err := loadScenario(path)
	if err != nil {
		return err
	}

	var (
		reg     *prometheus.Registry
		metrics *processor.Metrics
	)
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		metrics = processor.NewMetrics(reg)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	strict := opts.Strict || opts.Config.Strict
	x, err := execute(ctx, opts.RootOptions, s, executeOptions{strict: strict, metrics: metrics})
	if err != nil {
		return err
	}

	summary := summarize(x)
	summary.Failures = harness.EvaluateAssertions(x.Result, s.Expect)
	if reg != nil {
		families, err := reg.Gather()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
		summary.Metrics = flattenFamilies(families)
	}

	var failure *ExitError
	switch {
	case strict && len(summary.Rejected) > 0:
		rej := summary.Rejected[0]
		failure = NewExitError(ExitFailure, fmt.Sprintf("event %d rejected: %s", rej.Index, rej.Message))
	case len(summary.Failures) > 0:
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d expectation(s) failed", len(summary.Failures)))
	}

	f := opts.formatter(cmd)
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary, Session: x.Session}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_RUN_FAILED", Message: failure.Message}
		}
		if err := f.encode(resp); err != nil {
			return err
		}
	} else if err := f.Success(summary); err != nil {
		return err
	}

	if failure != nil {
		return failure
	}
	return nil
}

func summarize(x *execution) RunSummary {
	log := x.Processor().Log()
	index := x.Processor().Index()

	summary := RunSummary{
		Scenario:  x.Scenario.Name,
		Session:   x.Session,
		Inputs:    len(x.Scenario.Events),
		Accepted:  x.Result.Accepted,
		Committed: log.Len(),
		Rejected:  []RejectedEvent{},
	}

	for _, ev := range log.All() {
		if ev.Synthetic() {
			summary.Synthesized++
		}
	}
	if !log.Empty() {
		first, last := int64(log.FirstTimestamp()), int64(log.LastTimestamp())
		summary.FirstTS, summary.LastTS = &first, &last
	}

	for _, rej := range x.Result.Rejections {
		summary.Rejected = append(summary.Rejected, RejectedEvent{
			Index:   rej.Index,
			Kind:    rej.Kind,
			Code:    string(rej.Code),
			Message: rej.Err.Error(),
		})
	}

	for _, c := range interval.Categories {
		summary.Intervals = append(summary.Intervals, IntervalCount{
			Category: c.String(),
			Total:    index.Count(c),
			Pending:  index.PendingCount(c),
		})
	}
	return summary
}

// String renders the summary for text output.
func (s RunSummary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario %s (session %s)\n", s.Scenario, s.Session)
	fmt.Fprintf(&b, "accepted %d of %d inputs, committed %d events (%d synthesized)\n",
		s.Accepted, s.Inputs, s.Committed, s.Synthesized)
	if s.FirstTS != nil {
		fmt.Fprintf(&b, "time %d..%d\n", *s.FirstTS, *s.LastTS)
	}

	if len(s.Rejected) > 0 {
		b.WriteString("rejected:\n")
		for _, r := range s.Rejected {
			fmt.Fprintf(&b, "  [%d] %s %s: %s\n", r.Index, r.Kind, r.Code, r.Message)
		}
	}

	b.WriteString("intervals:\n")
	for _, c := range s.Intervals {
		fmt.Fprintf(&b, "  %-14s %d (%d pending)\n", c.Category, c.Total, c.Pending)
	}

	if len(s.Metrics) > 0 {
		b.WriteString("metrics:\n")
		for _, m := range s.Metrics {
			fmt.Fprintf(&b, "  %s\n", m)
		}
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(&b, "expectations: %d failed\n", len(s.Failures))
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(strings.TrimRight(f, "\n"), "\n", "\n  "))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
