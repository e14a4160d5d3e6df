package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/eventscope/internal/processor"
	"github.com/roach88/eventscope/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool

	// Errors contains failed expectation messages.
	// Empty if Pass is true.
	Errors []string

	// Accepted counts input events the processor committed.
	Accepted int

	// Rejections lists rejected input events in input order.
	Rejections []Rejection

	// Processor is the processor the scenario ran against. Its log and
	// index hold the final state.
	Processor *processor.Processor
}

// Rejection records one input event that was not committed.
type Rejection struct {
	Index int
	Kind  string
	Code  processor.ErrorCode
	Err   error
}

// NewResult creates a new passing result.
func NewResult(p *processor.Processor) *Result {
	return &Result{
		Pass:       true,
		Errors:     []string{},
		Rejections: []Rejection{},
		Processor:  p,
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Rejected returns the rejection of input event index, if it was rejected.
func (r *Result) Rejected(index int) (Rejection, bool) {
	for _, rej := range r.Rejections {
		if rej.Index == index {
			return rej, true
		}
	}
	return Rejection{}, false
}

// Dump renders the final log and interval index.
func (r *Result) Dump() string {
	return Dump(r.Processor.Log(), r.Processor.Index())
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	metrics *processor.Metrics
}

// WithLogger sets the processor's logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithMetrics records the run in m.
func WithMetrics(m *processor.Metrics) Option {
	return func(c *runConfig) {
		c.metrics = m
	}
}

// NewRunner builds a fresh processor behind a runner with the scenario's
// fixed session id.
func NewRunner(s *Scenario, opts ...Option) *processor.Runner {
	cfg := runConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	procOpts := []processor.Option{processor.WithLogger(cfg.logger)}
	if cfg.metrics != nil {
		procOpts = append(procOpts, processor.WithMetrics(cfg.metrics))
	}

	p := processor.New(nil, nil, procOpts...)
	return processor.NewRunner(p,
		processor.WithSessionGenerator(testutil.NewFixedSessionGenerator(s.Session)),
		processor.WithQueueCapacity(len(s.Events)),
	)
}

// Run executes a scenario and evaluates its expectations.
//
// Each scenario runs against a fresh processor for isolation. Rejected
// events are recorded and skipped; only failures outside validation (a
// stopped runner) abort the run with an error.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	r := NewRunner(s, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	result, err := Feed(ctx, r, s.Inputs())
	r.Stop()
	if runErr := <-done; err == nil && runErr != nil {
		err = fmt.Errorf("runner: %w", runErr)
	}
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, s.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// Feed submits inputs to r one at a time, waiting for each result.
// The runner's Run loop must already be active.
func Feed(ctx context.Context, r *processor.Runner, inputs []Input) (*Result, error) {
	return feed(ctx, r, inputs, false)
}

// FeedStrict is Feed, but stops at the first rejected input. The rejection
// is recorded in the result.
func FeedStrict(ctx context.Context, r *processor.Runner, inputs []Input) (*Result, error) {
	return feed(ctx, r, inputs, true)
}

func feed(ctx context.Context, r *processor.Runner, inputs []Input, strict bool) (*Result, error) {
	result := NewResult(r.Processor())

	for _, in := range inputs {
		if in.Err != nil {
			result.reject(in, processor.ErrCodeInvalidEventType, in.Err)
		} else {
			err := r.Process(ctx, in.Event)
			if err == nil {
				result.Accepted++
				continue
			}

			// Anything but a validation error means the runner is gone.
			code := processor.CodeOf(err)
			if code == "" {
				return nil, fmt.Errorf("event %d: %w", in.Index, err)
			}
			result.reject(in, code, err)
		}

		if strict {
			break
		}
	}

	return result, nil
}

func (r *Result) reject(in Input, code processor.ErrorCode, err error) {
	r.Rejections = append(r.Rejections, Rejection{
		Index: in.Index,
		Kind:  in.Kind,
		Code:  code,
		Err:   err,
	})
}
