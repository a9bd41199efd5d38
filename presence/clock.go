package presence

import "time"

type Clock interface {
	Now() time.Duration
}

type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock measuring time since its creation. time.Since
// uses the monotonic reading, so wall clock adjustments do not affect it.
func NewMonotonicClock() MonotonicClock {
	return MonotonicClock{start: time.Now()}
}

func (c MonotonicClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c MonotonicClock) Start() time.Time {
	return c.start
}
