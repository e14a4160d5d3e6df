package interval

import (
	"fmt"
	"sync"

	"github.com/roach88/eventscope/internal/event"
)

// Category classifies intervals.
type Category int

const (
	NodeExists Category = iota
	NodeColor
	NodeActivity
	MessagePass

	numCategories
)

// Categories lists every category in declaration order.
var Categories = []Category{NodeExists, NodeColor, NodeActivity, MessagePass}

var categoryNames = [numCategories]string{
	NodeExists:   "node_exists",
	NodeColor:    "node_color",
	NodeActivity: "node_activity",
	MessagePass:  "message_pass",
}

func (c Category) String() string {
	if c.Valid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is a declared category.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

// ParseCategory maps a snake_case name back to its Category.
func ParseCategory(name string) (Category, bool) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return 0, false
}

// Interval is a span between two log positions. It is pending while its end
// equals its start and closed once the end moves past it.
//
// The start is immutable. The end is guarded by the interval's own lock.
type Interval struct {
	category Category
	subject  string
	start    event.Position
	startAt  event.Timestamp

	mu    sync.RWMutex
	end   event.Position
	endAt event.Timestamp

	home *partition // guarded by the category's partition locks
}

// New creates a pending interval starting (and ending) at pos.
func New(category Category, subject string, pos event.Position, at event.Timestamp) *Interval {
	return &Interval{
		category: category,
		subject:  subject,
		start:    pos,
		startAt:  at,
		end:      pos,
		endAt:    at,
	}
}

// Category returns the interval's category.
func (iv *Interval) Category() Category { return iv.category }

// Subject returns the identifier the interval is about (node id,
// "node/activity", or message id).
func (iv *Interval) Subject() string { return iv.subject }

// Start returns the position and timestamp of the opening event.
func (iv *Interval) Start() (event.Position, event.Timestamp) {
	return iv.start, iv.startAt
}

// StartTime returns the start timestamp.
func (iv *Interval) StartTime() event.Timestamp { return iv.startAt }

// End returns the position and timestamp of the closing event. For a
// pending interval these equal the start.
func (iv *Interval) End() (event.Position, event.Timestamp) {
	iv.mu.RLock()
	defer iv.mu.RUnlock()
	return iv.end, iv.endAt
}

// EndTime returns the end timestamp.
func (iv *Interval) EndTime() event.Timestamp {
	iv.mu.RLock()
	defer iv.mu.RUnlock()
	return iv.endAt
}

// Pending reports whether the interval has not been closed yet.
func (iv *Interval) Pending() bool {
	iv.mu.RLock()
	defer iv.mu.RUnlock()
	return iv.end == iv.start
}

func (iv *Interval) setEnd(pos event.Position, at event.Timestamp) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.end = pos
	iv.endAt = at
}

func (iv *Interval) String() string {
	end, endAt := iv.End()
	if end == iv.start {
		return fmt.Sprintf("%s(%s)[%d..pending]", iv.category, iv.subject, iv.startAt)
	}
	return fmt.Sprintf("%s(%s)[%d..%d]", iv.category, iv.subject, iv.startAt, endAt)
}
