// Package guard provides the bounded-wait locks shared by the node's tasks
// around serial output, the sensor bus and block storage.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrTimeout indicates the lock was not acquired within the wait bound.
	ErrTimeout = errors.New("lock timeout")
)

// Lock is a mutual-exclusion lock acquired with a bounded wait.
type Lock struct {
	name    string
	timeout time.Duration
	sem     *semaphore.Weighted
}

// New creates a Lock with the default wait bound.
func New(name string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("guard %s: invalid timeout %v", name, timeout)
	}
	return &Lock{name: name, timeout: timeout, sem: semaphore.NewWeighted(1)}, nil
}

// Name returns the name of the lock.
func (l *Lock) Name() string {
	return l.name
}

// Timeout returns the default wait bound.
func (l *Lock) Timeout() time.Duration {
	return l.timeout
}

// Acquire waits up to the default bound.
func (l *Lock) Acquire(ctx context.Context) error {
	return l.AcquireWithin(ctx, l.timeout)
}

// AcquireWithin waits up to d. It returns ErrTimeout when the bound expires
// and the context error when ctx is done first.
func (l *Lock) AcquireWithin(ctx context.Context, d time.Duration) error {
	if l.sem.TryAcquire(1) {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		glog.V(2).Infof("guard %s: not acquired within %v", l.name, d)
		return ErrTimeout
	}
	return nil
}

// Release releases the lock.
func (l *Lock) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding the lock.
func (l *Lock) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Timeouts are the default wait bounds of the shared locks.
type Timeouts struct {
	Serial  time.Duration
	Bus     time.Duration
	Storage time.Duration
}

// DefaultTimeouts are the bounds used on the node.
var DefaultTimeouts = Timeouts{
	Serial:  200 * time.Millisecond,
	Bus:     100 * time.Millisecond,
	Storage: 100 * time.Millisecond,
}

// Set is the group of locks shared between the session and the
// collaborators.
type Set struct {
	Serial  *Lock
	Bus     *Lock
	Storage *Lock
}

// NewSet creates the shared locks. Failing here is fatal to the node.
func NewSet(t Timeouts) (*Set, error) {
	var s Set
	var err error
	if s.Serial, err = New("serial", t.Serial); err != nil {
		return nil, err
	}
	if s.Bus, err = New("bus", t.Bus); err != nil {
		return nil, err
	}
	if s.Storage, err = New("storage", t.Storage); err != nil {
		return nil, err
	}
	return &s, nil
}
