package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopPriorityOrder(t *testing.T) {
	clock := &ManualClock{}
	loop := NewLoop(clock)
	var order []string
	record := func(name string) Controller {
		return ControlFunc(func(ctx ControlContext) error {
			order = append(order, name)
			return nil
		})
	}
	loop.AddController(PrLvMonitor, "monitor", 0, record("monitor"))
	loop.AddController(PrLvActuate, "leds", 0, record("leds"))
	loop.AddController(PrLvSense, "sensors", 0, record("sensors"))
	loop.AddController(PrLvSense, "sensors2", 0, record("sensors2"))

	loop.RunIteration(context.Background())
	require.Equal(t, []string{"sensors", "sensors2", "leds", "monitor"}, order)
}

func TestLoopPeriod(t *testing.T) {
	clock := &ManualClock{}
	loop := NewLoop(clock)
	runs := 0
	loop.AddController(PrLvNormal, "poll", 5*time.Second, ControlFunc(func(ctx ControlContext) error {
		require.Equal(t, PrLvNormal, ctx.PriorityLevel())
		runs++
		return nil
	}))

	ctx := context.Background()
	loop.RunIteration(ctx)
	require.Equal(t, 1, runs)
	clock.Advance(4 * time.Second)
	loop.RunIteration(ctx)
	require.Equal(t, 1, runs)
	clock.Advance(time.Second)
	loop.RunIteration(ctx)
	require.Equal(t, 2, runs)
}

func TestLoopTaskInfo(t *testing.T) {
	clock := &ManualClock{}
	loop := NewLoop(clock)
	failure := errors.New("bus busy")
	loop.AddController(PrLvIdle, "idle", 0, ControlFunc(func(ControlContext) error { return nil }))
	loop.AddController(PrLvTop, "failing", 0, ControlFunc(func(ControlContext) error { return failure }))
	clock.Set(1500 * time.Millisecond)
	loop.RunIteration(context.Background())
	loop.RunIteration(context.Background())

	tasks := loop.Tasks()
	require.Len(t, tasks, 2)
	require.Equal(t, "failing", tasks[0].Name)
	require.Equal(t, uint64(2), tasks[0].Runs)
	require.Equal(t, uint64(2), tasks[0].Failures)
	require.Equal(t, failure, tasks[0].LastErr)
	require.Equal(t, 1500*time.Millisecond, tasks[0].LastRun)
	require.Equal(t, "idle", tasks[1].Name)
	require.Equal(t, uint64(0), tasks[1].Failures)
}

type runnableController struct {
	started chan struct{}
}

func (c *runnableController) Control(ControlContext) error { return nil }

func (c *runnableController) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRunsRunnables(t *testing.T) {
	loop := NewLoop(NewSystemClock())
	ctl := &runnableController{started: make(chan struct{})}
	loop.AddController(PrLvNormal, "conn", time.Second, ctl)
	require.Equal(t, []string{"conn"}, loop.Runnables())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	<-ctl.started
	cancel()
	require.Equal(t, context.Canceled, <-done)
}
