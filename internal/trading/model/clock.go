package model

// Clock is the monotonic integer time source shared by an OrderBook
// and the step driver built on top of it. It never runs backward: it
// advances by one tick per instruction applied within a step, then
// jumps to the next step boundary once the step completes.
type Clock struct {
	t Nanos
}

// NewClock starts a clock at start.
func NewClock(start Nanos) Clock {
	return Clock{t: start}
}

// Now returns the current reading.
func (c Clock) Now() Nanos { return c.t }

// SetIfGreater advances the clock to t, provided t is later than the
// current reading; otherwise it is a no-op. This is what lets a step
// driver jump to a step boundary unconditionally at the end of every
// step without ever moving the clock backward, even when intra-step
// ticks already overran that boundary.
func (c *Clock) SetIfGreater(t Nanos) {
	if t > c.t {
		c.t = t
	}
}
