package engine

import "sync/atomic"

// Clock is the logical clock that orders trace records.
//
// Every applied command is stamped with a strictly increasing seq. Wall time
// never orders anything: a replayed script yields the same seqs.
//
// Clock is safe for concurrent use, though only the engine loop calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start, so a resumed run continues
// after its last stored record.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
