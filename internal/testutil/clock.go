package testutil

import (
	"sync"

	"github.com/roach88/eventscope/internal/event"
)

// DeterministicClock hands out monotonically increasing microsecond
// timestamps for building event sequences in tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	now  event.Timestamp
	tick event.Timestamp
}

// NewDeterministicClock creates a clock at 0 that advances by tick per Next.
// A tick <= 0 is treated as 1µs.
//
// The first call to Next() returns tick.
func NewDeterministicClock(tick event.Timestamp) *DeterministicClock {
	if tick <= 0 {
		tick = 1
	}
	return &DeterministicClock{tick: tick}
}

// Next advances the clock by one tick and returns the new time.
func (c *DeterministicClock) Next() event.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.tick
	return c.now
}

// Current returns the current time without advancing.
func (c *DeterministicClock) Current() event.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to at. Moving backwards is allowed so tests can
// produce out-of-order events deliberately.
func (c *DeterministicClock) Set(at event.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

// Reset moves the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.Set(0)
}
