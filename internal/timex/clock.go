package timex

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Precision is the resolution at which message timestamps are kept. It
// matches PostgreSQL timestamptz, so a value read back equals the value
// that was written.
const Precision = time.Microsecond

// MonotonicClock never goes backwards within one process: if the wrapped
// clock returns a value earlier than the last one handed out, the last one
// is returned again. Values are UTC and truncated to Precision.
type MonotonicClock struct {
	mu   sync.Mutex
	src  Clock
	last time.Time
}

func NewMonotonicClock(src Clock) *MonotonicClock {
	if src == nil {
		src = SystemClock
	}
	return &MonotonicClock{src: src}
}

func (c *MonotonicClock) Now() time.Time {
	now := c.src.Now().UTC().Truncate(Precision)

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
