package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/eventscope/internal/event"
)

// ErrRunnerStopped is delivered for events submitted to, or still queued
// in, a Runner that has stopped.
var ErrRunnerStopped = errors.New("runner stopped")

// SessionGenerator produces the Runner's session id.
// Implemented by UUIDv7Generator (production) and testutil.FixedGenerator (tests).
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 session ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Runner is the single-writer front end of a Processor.
//
// Events submitted from any goroutine are queued in FIFO order and
// processed one at a time by the goroutine executing Run. Each submission
// receives exactly one result.
//
// Thread-safety model:
//   - Submit(), Process(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// The wrapped Processor must not be used directly while Run is active.
type Runner struct {
	proc    *Processor
	queue   *submissionQueue
	session string
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	capacity int
	gen      SessionGenerator
}

// WithQueueCapacity sets the initial capacity of the submission queue.
func WithQueueCapacity(n int) RunnerOption {
	return func(c *runnerConfig) {
		c.capacity = n
	}
}

// WithSessionGenerator overrides the UUIDv7 session id generator.
func WithSessionGenerator(g SessionGenerator) RunnerOption {
	return func(c *runnerConfig) {
		c.gen = g
	}
}

// NewRunner wraps p. The runner's session id is stamped into the source of
// every event the processor synthesizes.
func NewRunner(p *Processor, opts ...RunnerOption) *Runner {
	cfg := runnerConfig{gen: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	session := cfg.gen.Generate()
	p.session = session

	return &Runner{
		proc:    p,
		queue:   newSubmissionQueue(cfg.capacity),
		session: session,
		logger:  p.logger.With("session", session),
	}
}

// Session returns the runner's session id.
func (r *Runner) Session() string {
	return r.session
}

// Processor returns the wrapped processor.
func (r *Runner) Processor() *Processor {
	return r.proc
}

// Pending returns the number of queued, unprocessed submissions.
func (r *Runner) Pending() int {
	return r.queue.Len()
}

// Submit queues ev for processing. The returned channel receives the
// result of Processor.Process, or ErrRunnerStopped.
func (r *Runner) Submit(ev event.Event) <-chan error {
	return r.submit(submission{ev: ev, done: make(chan error, 1)})
}

func (r *Runner) submit(s submission) <-chan error {
	if !r.queue.Enqueue(s) {
		s.done <- ErrRunnerStopped
	}
	return s.done
}

// Process submits ev and waits for its result or for ctx to end.
//
// A ctx error means ev was not committed: the submission is withdrawn and
// Run skips it. If Run had already taken ev when ctx ended, Process waits
// for that result instead.
func (r *Runner) Process(ctx context.Context, ev event.Event) error {
	s := submission{ev: ev, done: make(chan error, 1), state: new(atomic.Int32)}
	done := r.submit(s)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if s.abandon() {
			return ctx.Err()
		}
		return <-done
	}
}

// Run drains the queue until ctx is cancelled or Stop is called.
//
// After Stop, submissions already queued are still processed before Run
// returns nil. On cancellation, queued submissions receive
// ErrRunnerStopped and Run returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner starting")

	for {
		s, ok := r.queue.TryDequeue()
		if ok {
			if s.claim() {
				s.done <- r.proc.Process(s.ev)
			}
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping: context cancelled")
			r.queue.Close()
			r.abandon()
			return ctx.Err()

		case <-r.queue.Wait():
			// A closed signal channel fires repeatedly; a stale signal
			// can fire with an empty but open queue.
			if r.queue.Drained() {
				r.logger.Info("runner stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once it has drained.
func (r *Runner) Stop() {
	r.queue.Close()
}

func (r *Runner) abandon() {
	for {
		s, ok := r.queue.TryDequeue()
		if !ok {
			return
		}
		s.done <- ErrRunnerStopped
	}
}
