// Package fakeclock provides a deterministic clock for tests.
//
// The clock stands still until Advance is called, except that every After
// call advances it by the requested duration and fires immediately. Code
// that sleeps on the clock therefore runs without real waiting while still
// observing the passage of time, and tests can assert on the recorded
// sleeps.
package fakeclock

import (
	"sync"
	"time"
)

// Clock is a fake time source. It is safe for concurrent use.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	sleeps  []time.Duration
}

// New returns a clock initialized to initial.
func New(initial time.Time) *Clock {
	return &Clock{current: initial}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After advances the clock by d and returns a channel that has already
// received the new time. Non-positive durations do not advance the clock
// and are not recorded.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.current = c.current.Add(d)
		c.sleeps = append(c.sleeps, d)
	}

	ch := make(chan time.Time, 1)
	ch <- c.current
	return ch
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Sleeps returns every duration passed to After, in call order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Slept returns the sum of all durations passed to After.
func (c *Clock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}
