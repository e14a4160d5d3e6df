package eventlog

import "github.com/roach88/eventscope/internal/event"

// Next returns the next sibling of pos: the following step for a step
// handle, or the following event in the same step for an event.
func (l *Log) Next(pos Position) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.containsLocked(pos) {
		return Position{}, false
	}
	if pos.IsStep() {
		if pos.Step()+1 >= len(l.steps) {
			return Position{}, false
		}
		return event.StepAt(pos.Step() + 1), true
	}
	if pos.Index()+1 >= len(l.steps[pos.Step()].events) {
		return Position{}, false
	}
	return event.EventAt(pos.Step(), pos.Index()+1), true
}

// Prev returns the previous sibling of pos.
func (l *Log) Prev(pos Position) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.containsLocked(pos) {
		return Position{}, false
	}
	if pos.IsStep() {
		if pos.Step() == 0 {
			return Position{}, false
		}
		return event.StepAt(pos.Step() - 1), true
	}
	if pos.Index() == 0 {
		return Position{}, false
	}
	return event.EventAt(pos.Step(), pos.Index()-1), true
}

// FirstChild returns the first child of parent: the first step when parent
// is the zero (root) Position, or the first event of a step.
func (l *Log) FirstChild(parent Position) (Position, bool) {
	return l.NthChild(parent, 0)
}

// Parent returns the step containing an event. Steps have no parent
// (their parent is the root).
func (l *Log) Parent(pos Position) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.containsLocked(pos) || pos.IsStep() {
		return Position{}, false
	}
	return event.StepAt(pos.Step()), true
}

// NthChild returns the n-th child of parent (root or step).
func (l *Log) NthChild(parent Position, n int) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		return Position{}, false
	}
	if !parent.IsValid() {
		if n >= len(l.steps) {
			return Position{}, false
		}
		return event.StepAt(n), true
	}
	if !parent.IsStep() || !l.containsLocked(parent) {
		return Position{}, false
	}
	if n >= len(l.steps[parent.Step()].events) {
		return Position{}, false
	}
	return event.EventAt(parent.Step(), n), true
}

// ChildCount returns the number of children of parent: the step count for
// the root, the event count for a step, and 0 for an event.
func (l *Log) ChildCount(parent Position) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !parent.IsValid() {
		return len(l.steps)
	}
	if !parent.IsStep() || !l.containsLocked(parent) {
		return 0
	}
	return len(l.steps[parent.Step()].events)
}

// NextEvent returns the event after pos in flat log order, crossing step
// boundaries. A step handle starts from that step's first event.
func (l *Log) NextEvent(pos Position) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.containsLocked(pos) {
		return Position{}, false
	}
	s, i := pos.Step(), pos.Index()+1
	if i < len(l.steps[s].events) {
		return event.EventAt(s, i), true
	}
	if s+1 < len(l.steps) {
		return event.EventAt(s+1, 0), true
	}
	return Position{}, false
}

// PrevEvent returns the event before pos in flat log order.
func (l *Log) PrevEvent(pos Position) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.containsLocked(pos) {
		return Position{}, false
	}
	s, i := pos.Step(), pos.Index()
	if pos.IsStep() {
		i = 0
	}
	if i > 0 {
		return event.EventAt(s, i-1), true
	}
	if s > 0 {
		return event.EventAt(s-1, len(l.steps[s-1].events)-1), true
	}
	return Position{}, false
}
