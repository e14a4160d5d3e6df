package event

import "fmt"

// Position is a stable handle to a location in an event log: either a whole
// Step or one Event within a Step.
//
// The zero Position is invalid and stands for "none". Positions are plain
// values; they stay valid for the lifetime of the log because the log only
// ever appends.
type Position struct {
	step  int
	index int // -1 addresses the step itself
	valid bool
}

// StepAt returns the Position of the step with the given index.
// It panics if step is negative.
func StepAt(step int) Position {
	if step < 0 {
		panic(fmt.Sprintf("event: negative step %d", step))
	}
	return Position{step: step, index: -1, valid: true}
}

// EventAt returns the Position of event index within step.
// It panics if either argument is negative.
func EventAt(step, index int) Position {
	if step < 0 || index < 0 {
		panic(fmt.Sprintf("event: negative position %d:%d", step, index))
	}
	return Position{step: step, index: index, valid: true}
}

// IsValid reports whether p addresses anything at all.
func (p Position) IsValid() bool { return p.valid }

// IsStep reports whether p addresses a whole step rather than one event.
func (p Position) IsStep() bool { return p.valid && p.index < 0 }

// Step returns the step index of p.
func (p Position) Step() int { return p.step }

// Index returns the event index within the step, or -1 for a step handle.
func (p Position) Index() int { return p.index }

// Compare orders positions by step, then by index. A step handle sorts
// before the events it contains. Invalid positions sort first.
func (p Position) Compare(o Position) int {
	switch {
	case p.valid != o.valid:
		if !p.valid {
			return -1
		}
		return 1
	case p.step != o.step:
		if p.step < o.step {
			return -1
		}
		return 1
	case p.index != o.index:
		if p.index < o.index {
			return -1
		}
		return 1
	}
	return 0
}

func (p Position) String() string {
	switch {
	case !p.valid:
		return "none"
	case p.index < 0:
		return fmt.Sprintf("%d", p.step)
	default:
		return fmt.Sprintf("%d:%d", p.step, p.index)
	}
}
