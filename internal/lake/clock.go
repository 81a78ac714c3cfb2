package lake

import "sync/atomic"

// Sequencer issues write generations and compact branch ids.
// Each call must return a number greater than every earlier one.
type Sequencer interface {
	Next() int64
}

// Clock is the default Sequencer: a lock-free counter starting at 0.
//
// A lake stamps every applied write with clock.Next(), and all observers
// notified by that write receive the same generation.
type Clock struct {
	n atomic.Int64
}

// NewClock returns a clock whose first generation is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose first generation is start+1. Use it to
// continue numbering after generations recorded elsewhere (e.g. a journal).
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.n.Store(start)
	return c
}

func (c *Clock) Next() int64 {
	return c.n.Add(1)
}

// Current returns the last generation issued.
func (c *Clock) Current() int64 {
	return c.n.Load()
}
