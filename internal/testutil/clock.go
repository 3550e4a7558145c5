package testutil

import (
	"sync"
	"time"
)

// Epoch is the first reading of a DeterministicClock created with
// NewDeterministicClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall-clock source for tests. Every call to Now
// returns the previous reading plus a fixed step, so durations measured
// between two readings are reproducible.
//
// Pass clock.Now to engine.WithNow.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	next  time.Time
	step  time.Duration
	calls int64
}

// NewDeterministicClock creates a clock starting at Epoch that advances one
// millisecond per reading.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch, time.Millisecond)
}

// NewDeterministicClockAt creates a clock whose first reading is start.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{next: start, step: step}
}

// Now returns the current reading and advances the clock by one step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	c.calls++
	return now
}

// Calls returns how many times Now has been read.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to Epoch. The step is kept.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
	c.calls = 0
}
