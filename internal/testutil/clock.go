package testutil

import "sync"

// DeterministicClock is a resettable lake.Sequencer for tests and the
// scenario harness. A fresh clock hands out 1, 2, 3... so two lakes driven
// through the same writes report the same generations.
type DeterministicClock struct {
	mu     sync.Mutex
	start  int64
	last   int64
	issued int
}

// NewDeterministicClock returns a clock whose first generation is 1.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(0)
}

// NewDeterministicClockAt returns a clock whose first generation is start+1.
func NewDeterministicClockAt(start int64) *DeterministicClock {
	return &DeterministicClock{start: start, last: start}
}

// Next returns the next generation.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	c.issued++
	return c.last
}

// Current returns the last generation handed out, or the start value.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Issued reports how many generations were handed out since the last reset.
func (c *DeterministicClock) Issued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued
}

// Reset rewinds the clock to its start value.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.start
	c.issued = 0
}
