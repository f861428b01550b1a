// Package framework schedules the node's tasks: long running Runnables
// (session, serial pump, telemetry connection) and periodic Controllers
// (sensor polling, LED timers, monitoring) executed by a Loop in priority
// order.
package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Controller defines a periodic unit of work run by the Loop.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current control iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Uptime is the node uptime when this iteration started.
	Uptime() time.Duration
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefined priority levels. Lower values run earlier in an iteration.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvSense is the alias of priority level for sensor polling.
	PrLvSense = PrLvHigh
	// PrLvActuate is the alias of priority level for actuators (LED timers).
	PrLvActuate = PrLvLow
	// PrLvMonitor is the alias of priority level for monitoring.
	PrLvMonitor = PrLvIdle
)
