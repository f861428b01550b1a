package framework

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop runs periodic controllers in priority order and owns the runnables
// added along with them.
type Loop struct {
	Interval time.Duration
	Clock    Clock

	tasks   [PriorityLevels][]*task
	runners []Runnable
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// TaskInfo is a snapshot of a scheduled controller.
type TaskInfo struct {
	Name          string
	PriorityLevel int
	Period        time.Duration
	Runs          uint64
	Failures      uint64
	LastRun       time.Duration
	LastErr       error
}

type task struct {
	info TaskInfo
	ctl  Controller
	next time.Duration
}

type loopIteration struct {
	ctx           context.Context
	uptime        time.Duration
	priorityLevel int
}

func (t *loopIteration) Context() context.Context { return t.ctx }
func (t *loopIteration) Uptime() time.Duration    { return t.uptime }
func (t *loopIteration) PriorityLevel() int       { return t.priorityLevel }

// NewLoop creates a Loop.
func NewLoop(clock Clock) *Loop {
	return &Loop{Interval: 10 * time.Millisecond, Clock: clock}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers a controller running every period at the
// priority level. A zero period runs it on every iteration.
func (l *Loop) AddController(priorityLevel int, name string, period time.Duration, ctl Controller) *Loop {
	t := &task{
		info: TaskInfo{Name: name, PriorityLevel: priorityLevel, Period: period},
		ctl:  ctl,
	}
	l.lock.Lock()
	l.tasks[priorityLevel] = append(l.tasks[priorityLevel], t)
	l.lock.Unlock()
	if runner, ok := ctl.(Runnable); ok {
		l.AddRunnable(NamedRun(name, runner))
	}
	return l
}

// AddRunnable adds Runnable implementions started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.lock.Lock()
	l.runners = append(l.runners, runnables...)
	l.lock.Unlock()
	return l
}

// Tasks returns a snapshot of scheduled controllers ordered by priority.
func (l *Loop) Tasks() []TaskInfo {
	l.lock.Lock()
	defer l.lock.Unlock()
	var infos []TaskInfo
	for _, lst := range l.tasks {
		for _, t := range lst {
			infos = append(infos, t.info)
		}
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].PriorityLevel < infos[j].PriorityLevel
	})
	return infos
}

// Runnables returns the names of the runnables owned by the loop.
func (l *Loop) Runnables() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	names := make([]string, 0, len(l.runners))
	for n, r := range l.runners {
		if named, ok := r.(Named); ok {
			names = append(names, named.Name())
		} else {
			names = append(names, "runner-"+strconv.Itoa(n))
		}
	}
	return names
}

// TriggerNext schedules the next iteration immediately.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	runners := append([]Runnable(nil), l.runners...)
	l.lock.Unlock()

	runner := NewRunnerWith(ctx)
	runner.Go(runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval == 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.RunIteration(ctx)
		case <-l.wakeUpCh:
			l.RunIteration(ctx)
		}
	}
}

// RunIteration runs all due controllers once, in priority order.
func (l *Loop) RunIteration(ctx context.Context) {
	iter := &loopIteration{ctx: ctx, uptime: l.Clock.Uptime()}
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.lock.Lock()
		due := make([]*task, 0, len(l.tasks[i]))
		for _, t := range l.tasks[i] {
			if iter.uptime >= t.next {
				t.next = iter.uptime + t.info.Period
				due = append(due, t)
			}
		}
		l.lock.Unlock()
		for _, t := range due {
			err := t.ctl.Control(iter)
			l.lock.Lock()
			t.info.Runs++
			t.info.LastRun = iter.uptime
			t.info.LastErr = err
			if err != nil {
				t.info.Failures++
			}
			l.lock.Unlock()
			if err != nil {
				glog.Errorf("task %s error: %v", t.info.Name, err)
			}
		}
	}
}
