package eventlog

import "github.com/roach88/eventscope/internal/event"

// ChangeKind identifies a log notification.
type ChangeKind int

const (
	// RowInserted: a step or event row was appended at Change.Position.
	RowInserted ChangeKind = iota + 1
	// RowChanged: the row at Change.Position should be redrawn.
	RowChanged
	// CursorChanged: the cursor moved from Change.Previous to Change.Position.
	CursorChanged
	// BoundsChanged: the first/last timestamps are now Change.First/Change.Last.
	BoundsChanged
)

func (k ChangeKind) String() string {
	switch k {
	case RowInserted:
		return "row_inserted"
	case RowChanged:
		return "row_changed"
	case CursorChanged:
		return "cursor_changed"
	case BoundsChanged:
		return "bounds_changed"
	}
	return "unknown"
}

// Change is a single notification emitted by the log.
type Change struct {
	Kind     ChangeKind
	Position event.Position
	Previous event.Position // CursorChanged only; invalid if there was no cursor
	First    event.Timestamp
	Last     event.Timestamp
}

// Listener receives log notifications. Listeners run on the goroutine that
// caused the change, after the log lock has been released.
type Listener func(Change)
