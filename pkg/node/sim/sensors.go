// Package sim provides host stand-ins for the node hardware: a sensor bus
// with a climate sensor and an accelerometer, and an LED bank.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/node"
)

// Device addresses on the simulated bus.
const (
	ClimateAddr uint8 = 0x40
	AccelAddr   uint8 = 0x53

	// AccelLSBPerG is the full resolution scale of the accelerometer.
	AccelLSBPerG = 256
)

// Sensors simulates the climate sensor and accelerometer with slowly
// drifting readings derived from the uptime.
type Sensors struct {
	lock  *guard.Lock
	clock framework.Clock

	climateOffline bool
	accelOffline   bool
	climate        node.Climate
	accel          node.Accel
	mu             sync.Mutex
}

// NewSensors creates Sensors sharing the bus guard.
func NewSensors(busLock *guard.Lock, clock framework.Clock) *Sensors {
	return &Sensors{lock: busLock, clock: clock}
}

// SetOnline takes sensors on and off the bus.
func (s *Sensors) SetOnline(climate, accel bool) {
	s.mu.Lock()
	s.climateOffline, s.accelOffline = !climate, !accel
	s.mu.Unlock()
}

func (s *Sensors) online() (climate, accel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.climateOffline, !s.accelOffline
}

// UpdateClimate implements node.Sensors.
func (s *Sensors) UpdateClimate(ctx context.Context) (node.Climate, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return s.Climate(), err
	}
	defer s.lock.Release()
	now := s.clock.Uptime()
	var c node.Climate
	if ok, _ := s.online(); ok {
		sec := now.Seconds()
		c = node.Climate{
			Temperature: 22.5 + 3*math.Sin(sec/60),
			Humidity:    50 + 12*math.Sin(sec/90),
			OK:          true,
			Updated:     now,
		}
	}
	s.mu.Lock()
	s.climate = c
	s.mu.Unlock()
	if !c.OK {
		return c, node.ErrOffline
	}
	return c, nil
}

// UpdateAccel implements node.Sensors.
func (s *Sensors) UpdateAccel(ctx context.Context) (node.Accel, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return s.Accel(), err
	}
	defer s.lock.Release()
	now := s.clock.Uptime()
	var a node.Accel
	if _, ok := s.online(); ok {
		sec := now.Seconds()
		a = node.NewAccel(
			int16(20*math.Sin(sec/7)),
			int16(15*math.Cos(sec/11)),
			AccelLSBPerG,
			AccelLSBPerG)
		a.Updated = now
	}
	s.mu.Lock()
	s.accel = a
	s.mu.Unlock()
	if !a.OK {
		return a, node.ErrOffline
	}
	return a, nil
}

// Climate implements node.Sensors.
func (s *Sensors) Climate() node.Climate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.climate
}

// Accel implements node.Sensors.
func (s *Sensors) Accel() node.Accel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accel
}

// Bus simulates the sensor bus the Sensors sit on.
type Bus struct {
	ScanTimeout  time.Duration
	ProbeTimeout time.Duration

	lock    *guard.Lock
	sensors *Sensors
	extra   []uint8
}

// NewBus creates a Bus. extra lists addresses of devices present besides
// the sensors.
func NewBus(busLock *guard.Lock, sensors *Sensors, extra ...uint8) *Bus {
	return &Bus{
		ScanTimeout:  2 * time.Second,
		ProbeTimeout: time.Second,
		lock:         busLock,
		sensors:      sensors,
		extra:        extra,
	}
}

// Name implements node.Bus.
func (b *Bus) Name() string {
	return "I2C2"
}

// Scan implements node.Bus.
func (b *Bus) Scan(ctx context.Context) ([]uint8, error) {
	if err := b.lock.AcquireWithin(ctx, b.ScanTimeout); err != nil {
		return nil, err
	}
	defer b.lock.Release()
	present := make(map[uint8]bool)
	climate, accel := b.sensors.online()
	present[ClimateAddr] = climate
	present[AccelAddr] = accel
	for _, addr := range b.extra {
		present[addr] = true
	}
	var found []uint8
	for addr := uint8(1); addr < 128; addr++ {
		if present[addr] {
			found = append(found, addr)
		}
	}
	return found, nil
}

// Probe implements node.Bus.
func (b *Bus) Probe(ctx context.Context) error {
	if err := b.lock.AcquireWithin(ctx, b.ProbeTimeout); err != nil {
		return err
	}
	b.lock.Release()
	return nil
}
