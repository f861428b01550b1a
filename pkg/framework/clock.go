package framework

import (
	"sync"
	"time"
)

// Clock is the monotonic time source of the node.
type Clock interface {
	// Uptime returns the time elapsed since boot.
	Uptime() time.Duration
}

// Millis converts uptime into the 32-bit millisecond tick used on media.
func Millis(c Clock) uint32 {
	return uint32(c.Uptime() / time.Millisecond)
}

type systemClock struct {
	boot time.Time
}

func (c *systemClock) Uptime() time.Duration {
	return time.Since(c.boot)
}

// NewSystemClock creates a Clock counting from now.
func NewSystemClock() Clock {
	return &systemClock{boot: time.Now()}
}

// ManualClock is a Clock only moved by Advance. It is used by tests and by
// tooling operating on an offline flash image.
type ManualClock struct {
	now  time.Duration
	lock sync.Mutex
}

// Uptime implements Clock.
func (c *ManualClock) Uptime() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now += d
	c.lock.Unlock()
}

// Set sets the absolute uptime.
func (c *ManualClock) Set(d time.Duration) {
	c.lock.Lock()
	c.now = d
	c.lock.Unlock()
}
