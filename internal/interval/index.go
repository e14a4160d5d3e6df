package interval

import (
	"fmt"
	"slices"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/notify"
)

// ChangeKind identifies an index notification.
type ChangeKind int

const (
	// Opened: an interval was added to the index.
	Opened ChangeKind = iota + 1
	// Closed: an indexed interval's end moved.
	Closed
)

func (k ChangeKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Change is a single index notification.
type Change struct {
	Kind     ChangeKind
	Interval *Interval
}

const (
	pointPart = iota
	spanPart
)

// Index holds every interval, per category, split into Point and Span
// partitions.
type Index struct {
	parts [numCategories][2]partition
	bus   notify.Bus[Change]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Subscribe registers fn for Opened/Closed notifications, delivered after
// the index locks are released.
func (x *Index) Subscribe(fn func(Change)) func() {
	return x.bus.Subscribe(fn)
}

// Open creates a pending interval at pos and adds it to the index.
func (x *Index) Open(category Category, subject string, pos event.Position, at event.Timestamp) *Interval {
	iv := New(category, subject, pos, at)
	x.Add(iv)
	return iv
}

// Add inserts iv into the partition matching its pending state.
// Adding an interval that is already indexed panics.
func (x *Index) Add(iv *Interval) {
	if !iv.category.Valid() {
		panic(fmt.Sprintf("interval: add with invalid category %d", iv.category))
	}

	p := &x.parts[iv.category][partFor(iv.Pending())]
	p.mu.Lock()
	if iv.home != nil {
		p.mu.Unlock()
		panic(fmt.Sprintf("interval: %s is already indexed", iv))
	}
	p.insertLocked(iv)
	p.mu.Unlock()

	x.bus.Dispatch(Change{Kind: Opened, Interval: iv})
}

// Close moves iv's end to pos/at. If that changes whether the interval is
// pending, it migrates between the Point and Span partitions.
//
// Closing an interval that is not in this index, or closing it before its
// start, is a programming error and panics.
func (x *Index) Close(iv *Interval, pos event.Position, at event.Timestamp) {
	if !iv.category.Valid() {
		panic(fmt.Sprintf("interval: close with invalid category %d", iv.category))
	}
	if at < iv.startAt || pos.Compare(iv.start) < 0 {
		panic(fmt.Sprintf("interval: close %s at %s/%d precedes its start", iv, pos, at))
	}

	parts := &x.parts[iv.category]
	unlock := x.lockCategory(iv.category)

	from := &parts[partFor(iv.Pending())]
	if iv.home != from {
		unlock()
		panic(fmt.Sprintf("interval: close of unindexed %s", iv))
	}

	iv.setEnd(pos, at)
	to := &parts[partFor(iv.Pending())]
	if to != from {
		from.removeLocked(iv)
		to.insertLocked(iv)
	} else {
		from.dirty = true
	}
	unlock()

	x.bus.Dispatch(Change{Kind: Closed, Interval: iv})
}

// Lookup returns every interval of category whose [start, end] intersects
// [t0, t1], ordered by start time then start position.
//
// A pending interval counts as extending to the present: it is returned
// whenever its start is at or before t1, however early t0 is.
//
// Both partitions are scanned under their locks at once, so an interval
// closing concurrently is seen exactly once, before or after the move.
func (x *Index) Lookup(category Category, t0, t1 event.Timestamp) []*Interval {
	if !category.Valid() || t1 < t0 {
		return nil
	}

	found := make(map[*Interval]struct{})
	var out []*Interval
	add := func(iv *Interval) {
		if _, dup := found[iv]; dup {
			return
		}
		found[iv] = struct{}{}
		out = append(out, iv)
	}

	parts := &x.parts[category]
	unlock := x.lockCategory(category)
	parts[spanPart].lookupSpansLocked(t0, t1, add)
	parts[pointPart].lookupPendingLocked(t1, add)
	unlock()

	sortByStart(out)
	return out
}

// Count returns the number of intervals of category across both partitions.
func (x *Index) Count(category Category) int {
	if !category.Valid() {
		return 0
	}
	parts := &x.parts[category]
	unlock := x.lockCategory(category)
	defer unlock()
	return len(parts[pointPart].byStart) + len(parts[spanPart].byStart)
}

// PendingCount returns the number of pending intervals of category.
func (x *Index) PendingCount(category Category) int {
	if !category.Valid() {
		return 0
	}
	p := &x.parts[category][pointPart]
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byStart)
}

// Intervals returns a snapshot of every interval of category ordered by start.
func (x *Index) Intervals(category Category) []*Interval {
	if !category.Valid() {
		return nil
	}
	parts := &x.parts[category]
	unlock := x.lockCategory(category)
	out := slices.Concat(parts[pointPart].byStart, parts[spanPart].byStart)
	unlock()
	sortByStart(out)
	return out
}

// lockCategory locks both partitions of category, point before span, and
// returns the matching unlock. Every caller touching both partitions goes
// through here so the lock order never inverts.
func (x *Index) lockCategory(category Category) func() {
	parts := &x.parts[category]
	parts[pointPart].mu.Lock()
	parts[spanPart].mu.Lock()
	return func() {
		parts[spanPart].mu.Unlock()
		parts[pointPart].mu.Unlock()
	}
}

func partFor(pending bool) int {
	if pending {
		return pointPart
	}
	return spanPart
}

func sortByStart(ivs []*Interval) {
	slices.SortStableFunc(ivs, func(a, b *Interval) int {
		if a.startAt != b.startAt {
			if a.startAt < b.startAt {
				return -1
			}
			return 1
		}
		return a.start.Compare(b.start)
	})
}
