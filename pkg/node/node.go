// Package node defines the collaborators the console drives: climate and
// motion sensors, the sensor bus and the LED bank.
package node

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	// ErrOffline indicates a sensor did not respond.
	ErrOffline = errors.New("sensor offline")
	// ErrNoLED indicates an LED number out of range.
	ErrNoLED = errors.New("invalid LED number")
)

// Climate is a temperature and humidity reading.
type Climate struct {
	Temperature float64 // Celsius
	Humidity    float64 // percent RH
	OK          bool
	Updated     time.Duration // uptime of the reading
}

// Accel is an accelerometer reading.
type Accel struct {
	XRaw, YRaw, ZRaw int16
	X, Y, Z          float64 // g
	Magnitude        float64 // g
	TiltX, TiltY     float64 // degrees
	OK               bool
	Updated          time.Duration
}

// NewAccel derives the computed fields from raw samples at lsbPerG.
func NewAccel(x, y, z int16, lsbPerG float64) Accel {
	a := Accel{
		XRaw: x, YRaw: y, ZRaw: z,
		X:  float64(x) / lsbPerG,
		Y:  float64(y) / lsbPerG,
		Z:  float64(z) / lsbPerG,
		OK: true,
	}
	a.Magnitude = math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
	a.TiltX = math.Atan2(a.X, math.Sqrt(a.Y*a.Y+a.Z*a.Z)) * 180 / math.Pi
	a.TiltY = math.Atan2(a.Y, math.Sqrt(a.X*a.X+a.Z*a.Z)) * 180 / math.Pi
	return a
}

// Sensors reads the climate and motion sensors. Updates take the bus guard.
type Sensors interface {
	UpdateClimate(ctx context.Context) (Climate, error)
	UpdateAccel(ctx context.Context) (Accel, error)
	Climate() Climate
	Accel() Accel
}

// Bus is the sensor bus.
type Bus interface {
	// Name identifies the bus, like I2C2.
	Name() string
	// Scan returns the responding 7-bit addresses.
	Scan(ctx context.Context) ([]uint8, error)
	// Probe checks the bus peripheral itself.
	Probe(ctx context.Context) error
}

// LEDs is the LED bank, numbered from 1.
type LEDs interface {
	Count() int
	Set(n int, on bool) error
	SetAll(on bool)
	// SetTimer turns LED n on and off again after d.
	SetTimer(n int, d time.Duration) error
	State(n int) bool
}

// KnownDevices names the bus addresses the node expects or recognizes.
var KnownDevices = map[uint8]string{
	0x40: "HDC1080 Temperature/Humidity",
	0x53: "ADXL345 Accelerometer",
	0x68: "MPU6050 or DS1307",
	0x77: "BMP280/BME280",
}
