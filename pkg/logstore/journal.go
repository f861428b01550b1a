package logstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/framework"
)

// RecentSize is the number of events kept in memory by a Journal.
const RecentSize = 10

// Entry is an event kept in memory.
type Entry struct {
	Timestamp uint32
	Level     Level
	Module    string
	Message   string
}

// Journal is the system log service. Every event goes to glog and the
// in-memory ring; ERROR, WARNING and LOGIN events are also persisted.
type Journal struct {
	store *Store
	clock framework.Clock

	recent [RecentSize]Entry
	next   int
	count  int
	lock   sync.Mutex
}

// NewJournal creates a Journal over store.
func NewJournal(store *Store, clock framework.Clock) *Journal {
	return &Journal{store: store, clock: clock}
}

// Persistent tells whether events at level are written to the store.
func Persistent(level Level) bool {
	switch level {
	case LevelError, LevelWarning, LevelLogin:
		return true
	}
	return false
}

// Logf records an event.
func (j *Journal) Logf(ctx context.Context, level Level, module, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelError:
		glog.Errorf("[%s] %s", module, msg)
	case LevelWarning:
		glog.Warningf("[%s] %s", module, msg)
	case LevelDebug:
		glog.V(1).Infof("[%s] %s", module, msg)
	default:
		glog.Infof("[%s] %s: %s", module, level, msg)
	}

	j.lock.Lock()
	j.recent[j.next] = Entry{
		Timestamp: framework.Millis(j.clock),
		Level:     level,
		Module:    module,
		Message:   msg,
	}
	j.next = (j.next + 1) % RecentSize
	if j.count < RecentSize {
		j.count++
	}
	j.lock.Unlock()

	if j.store != nil && Persistent(level) {
		// a dropped record was already reported by the store
		j.store.Add(ctx, level, module, msg)
	}
}

// Recent returns the in-memory events, oldest first.
func (j *Journal) Recent() []Entry {
	j.lock.Lock()
	defer j.lock.Unlock()
	entries := make([]Entry, 0, j.count)
	for n := 0; n < j.count; n++ {
		entries = append(entries, j.recent[(j.next-j.count+n+RecentSize)%RecentSize])
	}
	return entries
}

// Store returns the persistent store.
func (j *Journal) Store() *Store {
	return j.store
}
