package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/eventscope/internal/harness"
	"github.com/roach88/eventscope/internal/processor"
	"github.com/roach88/eventscope/internal/testutil"
)

// execution is a scenario that has been fed through a runner.
type execution struct {
	Scenario *harness.Scenario
	Session  string
	Result   *harness.Result
}

// Processor returns the processor holding the final log and index.
func (x *execution) Processor() *processor.Processor {
	return x.Result.Processor
}

type executeOptions struct {
	strict  bool
	metrics *processor.Metrics

	// attach is called with the fresh processor before any event is fed.
	attach func(p *processor.Processor) error
}

func loadScenario(path string) (*harness.Scenario, error) {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	return s, nil
}

// sessionGenerator pins the session id when the scenario names one.
func sessionGenerator(s *harness.Scenario) processor.SessionGenerator {
	if s.Session != "" {
		return testutil.NewFixedSessionGenerator(s.Session)
	}
	return processor.UUIDv7Generator{}
}

// execute feeds s through a fresh processor behind a runner. The runner's
// loop and the feeder share an errgroup; the feeder stops the runner once
// every input has been answered.
func execute(ctx context.Context, opts *RootOptions, s *harness.Scenario, xo executeOptions) (*execution, error) {
	logger := opts.logger()

	procOpts := []processor.Option{processor.WithLogger(logger)}
	if xo.metrics != nil {
		procOpts = append(procOpts, processor.WithMetrics(xo.metrics))
	}
	p := processor.New(nil, nil, procOpts...)

	if xo.attach != nil {
		if err := xo.attach(p); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to attach", err)
		}
	}

	r := processor.NewRunner(p,
		processor.WithSessionGenerator(sessionGenerator(s)),
		processor.WithQueueCapacity(opts.Config.QueueHint),
	)
	logger.Info("processing scenario",
		"scenario", s.Name,
		"events", len(s.Events),
		"session", r.Session(),
		"strict", xo.strict,
	)

	feed := harness.Feed
	if xo.strict {
		feed = harness.FeedStrict
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("runner: %w", err)
		}
		return nil
	})

	var result *harness.Result
	g.Go(func() error {
		defer r.Stop()
		res, err := feed(gctx, r, s.Inputs())
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, WrapExitError(ExitFailure, "scenario aborted", err)
	}

	logger.Info("scenario processed",
		"scenario", s.Name,
		"accepted", result.Accepted,
		"rejected", len(result.Rejections),
	)
	return &execution{Scenario: s, Session: r.Session(), Result: result}, nil
}

// commandContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
