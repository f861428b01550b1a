package sim

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/node"
)

// LEDCount is the number of LEDs on the node.
const LEDCount = 3

// LEDBank simulates the LEDs and expires their timers when run as a
// controller.
type LEDBank struct {
	// OnExpire is called outside the bank lock when a timer turned an LED off.
	OnExpire func(cc framework.ControlContext, n int)

	clock    framework.Clock
	states   [LEDCount]bool
	deadline [LEDCount]time.Duration
	lock     sync.Mutex
}

// NewLEDBank creates an LEDBank with all LEDs off.
func NewLEDBank(clock framework.Clock) *LEDBank {
	return &LEDBank{clock: clock}
}

// Count implements node.LEDs.
func (b *LEDBank) Count() int {
	return LEDCount
}

// Set implements node.LEDs. Turning an LED off cancels its timer.
func (b *LEDBank) Set(n int, on bool) error {
	if n < 1 || n > LEDCount {
		return node.ErrNoLED
	}
	b.lock.Lock()
	b.set(n-1, on)
	b.lock.Unlock()
	return nil
}

func (b *LEDBank) set(i int, on bool) {
	b.states[i] = on
	if !on {
		b.deadline[i] = 0
	}
	glog.V(3).Infof("led%d %v", i+1, on)
}

// SetAll implements node.LEDs.
func (b *LEDBank) SetAll(on bool) {
	b.lock.Lock()
	for i := range b.states {
		b.set(i, on)
	}
	b.lock.Unlock()
}

// SetTimer implements node.LEDs.
func (b *LEDBank) SetTimer(n int, d time.Duration) error {
	if n < 1 || n > LEDCount {
		return node.ErrNoLED
	}
	b.lock.Lock()
	b.set(n-1, true)
	b.deadline[n-1] = b.clock.Uptime() + d
	b.lock.Unlock()
	return nil
}

// State implements node.LEDs.
func (b *LEDBank) State(n int) bool {
	if n < 1 || n > LEDCount {
		return false
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.states[n-1]
}

// Control implements framework.Controller.
func (b *LEDBank) Control(cc framework.ControlContext) error {
	var expired [LEDCount]bool
	b.lock.Lock()
	for i := range b.states {
		if b.states[i] && b.deadline[i] > 0 && cc.Uptime() >= b.deadline[i] {
			b.set(i, false)
			expired[i] = true
		}
	}
	b.lock.Unlock()
	for i, ok := range expired {
		if ok && b.OnExpire != nil {
			b.OnExpire(cc, i+1)
		}
	}
	return nil
}
