package eventlog

import (
	"iter"
	"sort"
	"sync"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/notify"
)

// Position is the stable handle type used by the log.
type Position = event.Position

// step groups the events sharing one timestamp.
type step struct {
	at     event.Timestamp
	events []event.Event
}

// Log is the append-only, time-ordered event log.
//
// INVARIANTS:
//   - step timestamps are strictly increasing
//   - every step holds at least one event
//   - the cursor, when set, addresses a committed event (never a step)
type Log struct {
	mu     sync.Mutex
	steps  []step
	count  int
	cursor Position

	bus notify.Bus[Change]
}

// New creates an empty log.
func New() *Log {
	return &Log{steps: make([]step, 0, 64)}
}

// Subscribe registers fn for change notifications and returns a function
// that unsubscribes it. Unsubscribing more than once is a no-op.
func (l *Log) Subscribe(fn Listener) func() {
	return l.bus.Subscribe(fn)
}

// Append commits ev at the end of the log.
//
// ev joins the last step if its timestamp equals that step's timestamp,
// otherwise it opens a new step. Returns an *OrderError (wrapping
// ErrTimestampOrder) if ev's timestamp precedes the last committed one.
//
// Emits RowInserted for the new event (preceded by RowInserted for the new
// step and followed by BoundsChanged when a step was opened).
func (l *Log) Append(ev event.Event) (Position, error) {
	if ev == nil {
		return Position{}, ErrNilEvent
	}

	l.mu.Lock()
	at := ev.Time()
	n := len(l.steps)
	if n > 0 && at < l.steps[n-1].at {
		last := l.steps[n-1].at
		l.mu.Unlock()
		return Position{}, &OrderError{Last: last, Got: at}
	}

	var changes []Change
	var pos Position
	if n > 0 && at == l.steps[n-1].at {
		s := &l.steps[n-1]
		s.events = append(s.events, ev)
		pos = event.EventAt(n-1, len(s.events)-1)
		changes = append(changes, Change{Kind: RowInserted, Position: pos})
	} else {
		l.steps = append(l.steps, step{at: at, events: []event.Event{ev}})
		pos = event.EventAt(n, 0)
		changes = append(changes,
			Change{Kind: RowInserted, Position: event.StepAt(n)},
			Change{Kind: RowInserted, Position: pos},
			Change{Kind: BoundsChanged, First: l.steps[0].at, Last: at},
		)
	}
	l.count++
	l.mu.Unlock()

	l.bus.Dispatch(changes...)
	return pos, nil
}

// Event returns the event at pos. A step handle resolves to the step's
// last event.
func (l *Log) Event(pos Position) (event.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	resolved, ok := l.resolveLocked(pos)
	if !ok {
		return nil, false
	}
	return l.steps[resolved.Step()].events[resolved.Index()], true
}

// EventsAtSameTime returns, in commit order, every event in pos's step.
func (l *Log) EventsAtSameTime(pos Position) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	resolved, ok := l.resolveLocked(pos)
	if !ok {
		return nil
	}
	src := l.steps[resolved.Step()].events
	out := make([]event.Event, len(src))
	copy(out, src)
	return out
}

// StepTime returns the timestamp shared by every event in pos's step.
func (l *Log) StepTime(pos Position) (event.Timestamp, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.containsLocked(pos) {
		return 0, false
	}
	return l.steps[pos.Step()].at, true
}

// SetCursor moves the cursor to pos, resolving a step handle to the step's
// last event. Returns false, leaving the cursor untouched, if pos does not
// address a committed step or event.
//
// Emits CursorChanged, then RowChanged for the old (if any) and new cursor rows.
func (l *Log) SetCursor(pos Position) bool {
	l.mu.Lock()
	resolved, ok := l.resolveLocked(pos)
	if !ok {
		l.mu.Unlock()
		return false
	}
	old := l.cursor
	l.cursor = resolved
	l.mu.Unlock()

	changes := []Change{{Kind: CursorChanged, Position: resolved, Previous: old}}
	if old.IsValid() && old != resolved {
		changes = append(changes, Change{Kind: RowChanged, Position: old})
	}
	changes = append(changes, Change{Kind: RowChanged, Position: resolved})
	l.bus.Dispatch(changes...)
	return true
}

// Cursor returns the cursor position, or false if it was never set.
func (l *Log) Cursor() (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor, l.cursor.IsValid()
}

// FirstTimestamp returns the timestamp of the first step, or 0 if empty.
func (l *Log) FirstTimestamp() event.Timestamp {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.steps) == 0 {
		return 0
	}
	return l.steps[0].at
}

// LastTimestamp returns the timestamp of the last step, or 0 if empty.
func (l *Log) LastTimestamp() event.Timestamp {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.steps) == 0 {
		return 0
	}
	return l.steps[len(l.steps)-1].at
}

// Empty reports whether nothing has been committed yet.
func (l *Log) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps) == 0
}

// Len returns the number of committed events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// StepCount returns the number of steps.
func (l *Log) StepCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Seek returns the position of the last event committed at or before at.
func (l *Log) Seek(at event.Timestamp) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// First step strictly after at; the one before it is the answer.
	i := sort.Search(len(l.steps), func(i int) bool { return l.steps[i].at > at })
	if i == 0 {
		return Position{}, false
	}
	return event.EventAt(i-1, len(l.steps[i-1].events)-1), true
}

// All iterates over every event committed at the time of the call, in log
// order. The log is not locked while the caller's loop body runs.
func (l *Log) All() iter.Seq2[Position, event.Event] {
	l.mu.Lock()
	snapshot := make([]step, len(l.steps))
	copy(snapshot, l.steps)
	l.mu.Unlock()

	return func(yield func(Position, event.Event) bool) {
		for si, s := range snapshot {
			for ei, ev := range s.events {
				if !yield(event.EventAt(si, ei), ev) {
					return
				}
			}
		}
	}
}

// containsLocked reports whether pos addresses a committed step or event.
func (l *Log) containsLocked(pos Position) bool {
	if !pos.IsValid() || pos.Step() < 0 || pos.Step() >= len(l.steps) {
		return false
	}
	return pos.IsStep() || pos.Index() < len(l.steps[pos.Step()].events)
}

// resolveLocked maps pos onto a concrete event position.
func (l *Log) resolveLocked(pos Position) (Position, bool) {
	if !l.containsLocked(pos) {
		return Position{}, false
	}
	if pos.IsStep() {
		return event.EventAt(pos.Step(), len(l.steps[pos.Step()].events)-1), true
	}
	return pos, true
}
