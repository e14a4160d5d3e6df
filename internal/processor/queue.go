package processor

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/eventscope/internal/event"
)

// submission pairs an event with the channel its result is delivered on.
type submission struct {
	ev   event.Event
	done chan error // buffered, size 1

	// state is set for submissions whose caller may give up waiting.
	// The runner and the caller race to move it off claimQueued.
	state *atomic.Int32
}

const (
	claimQueued int32 = iota
	claimTaken
	claimAbandoned
)

// claim reports whether the runner may process s. It is false once the
// caller has abandoned it.
func (s submission) claim() bool {
	return s.state == nil || s.state.CompareAndSwap(claimQueued, claimTaken)
}

// abandon reports whether the caller withdrew s before the runner took it.
func (s submission) abandon() bool {
	return s.state.CompareAndSwap(claimQueued, claimAbandoned)
}

// submissionQueue is a thread-safe, unbounded FIFO of submissions.
//
// Producers on any goroutine Enqueue; the Runner loop is the only consumer.
// A buffered signal channel lets the consumer wait with select alongside
// context cancellation.
type submissionQueue struct {
	mu     sync.Mutex
	items  []submission
	closed bool
	signal chan struct{} // buffered, size 1
}

func newSubmissionQueue(capacity int) *submissionQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &submissionQueue{
		items:  make([]submission, 0, capacity),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds s to the back of the queue.
// Returns false if the queue is closed.
func (q *submissionQueue) Enqueue(s submission) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, s)

	// Buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front submission without blocking.
func (q *submissionQueue) TryDequeue() (submission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return submission{}, false
	}

	s := q.items[0]
	q.items[0] = submission{} // release the event for GC

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return s, true
}

// Wait returns a channel that signals when submissions may be available.
// It is closed when the queue is closed.
func (q *submissionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued submissions.
func (q *submissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained reports whether the queue is closed and empty.
func (q *submissionQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Close stops further enqueues and wakes the consumer.
func (q *submissionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
