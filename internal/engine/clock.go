package engine

import "sync/atomic"

// Sequencer hands out the seq numbers the engine stamps on entries.
// Clock is the production implementation.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the engine's logical clock. Every journal entry is stamped with
// a strictly increasing seq from it; wall time is never used for ordering.
//
// Clock is safe for concurrent use, although only the Run goroutine
// normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start, so the next seq handed
// out is start+1. Restore uses it to continue after the journal's last seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
