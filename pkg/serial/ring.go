// Package serial moves bytes between the session and the link: an input
// pump feeding a single-producer/single-consumer ring, a guarded output,
// and the host links (raw stdio, websocket).
package serial

import (
	"sync/atomic"
)

// RingSize is the capacity of the receive ring. It must be a power of 2.
const RingSize = 64

// Ring is a lock-free single-producer/single-consumer byte queue. Only the
// producer advances head and only the consumer advances tail.
type Ring struct {
	buf      [RingSize]byte
	head     atomic.Uint32
	tail     atomic.Uint32
	overruns atomic.Uint64
}

// Push appends b. It returns false and counts an overrun when full.
// Producer side only.
func (r *Ring) Push(b byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= RingSize {
		r.overruns.Add(1)
		return false
	}
	r.buf[head&(RingSize-1)] = b
	r.head.Store(head + 1)
	return true
}

// Pop removes the oldest byte. Consumer side only.
func (r *Ring) Pop() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b := r.buf[tail&(RingSize-1)]
	r.tail.Store(tail + 1)
	return b, true
}

// Len returns the number of queued bytes.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Overruns returns the number of bytes dropped because the ring was full.
func (r *Ring) Overruns() uint64 {
	return r.overruns.Load()
}
