package interval

import (
	"cmp"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/eventscope/internal/event"
)

// partition keeps the same intervals in two arrays, lazily sorted by start
// and by end time.
type partition struct {
	mu      sync.Mutex
	byStart []*Interval
	byEnd   []*Interval
	dirty   bool
}

func (p *partition) insertLocked(iv *Interval) {
	p.byStart = append(p.byStart, iv)
	p.byEnd = append(p.byEnd, iv)
	p.dirty = true
	iv.home = p
}

func (p *partition) removeLocked(iv *Interval) {
	p.byStart = removeInterval(p.byStart, iv)
	p.byEnd = removeInterval(p.byEnd, iv)
	p.dirty = true
	iv.home = nil
}

// removeInterval swap-deletes iv; order is restored by the next sort.
func removeInterval(ivs []*Interval, iv *Interval) []*Interval {
	i := slices.Index(ivs, iv)
	if i < 0 {
		return ivs
	}
	last := len(ivs) - 1
	ivs[i] = ivs[last]
	ivs[last] = nil
	return ivs[:last]
}

func (p *partition) sortLocked() {
	if !p.dirty {
		return
	}
	slices.SortStableFunc(p.byStart, func(a, b *Interval) int {
		return cmp.Compare(a.startAt, b.startAt)
	})
	slices.SortStableFunc(p.byEnd, func(a, b *Interval) int {
		return cmp.Compare(a.EndTime(), b.EndTime())
	})
	p.dirty = false
}

// lookupSpansLocked reports every closed interval intersecting [t0, t1].
func (p *partition) lookupSpansLocked(t0, t1 event.Timestamp, add func(*Interval)) {
	p.sortLocked()

	n := len(p.byStart)
	if n == 0 {
		return
	}

	// Pass 1: start inside the window.
	s := sort.Search(n, func(i int) bool { return p.byStart[i].startAt >= t0 })
	e := sort.Search(n, func(i int) bool { return p.byStart[i].startAt > t1 })
	for _, iv := range p.byStart[s:e] {
		add(iv)
	}

	// Pass 2: end inside the window.
	es := sort.Search(n, func(i int) bool { return p.byEnd[i].EndTime() >= t0 })
	ee := sort.Search(n, func(i int) bool { return p.byEnd[i].EndTime() > t1 })
	for _, iv := range p.byEnd[es:ee] {
		add(iv)
	}

	// Pass 3: intervals covering the whole window start before t0 and end
	// after t1. Scan whichever candidate region is smaller.
	if s <= n-ee {
		for _, iv := range p.byStart[:s] {
			if iv.EndTime() > t1 {
				add(iv)
			}
		}
	} else {
		for _, iv := range p.byEnd[ee:] {
			if iv.startAt < t0 {
				add(iv)
			}
		}
	}
}

// lookupPendingLocked reports every pending interval starting at or before t1.
func (p *partition) lookupPendingLocked(t1 event.Timestamp, add func(*Interval)) {
	p.sortLocked()

	e := sort.Search(len(p.byStart), func(i int) bool { return p.byStart[i].startAt > t1 })
	for _, iv := range p.byStart[:e] {
		add(iv)
	}
}
