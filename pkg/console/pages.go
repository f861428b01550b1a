package console

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/node"
)

// FormatUptime renders an uptime as HH:MM:SS, prefixed with days when
// longer than a day.
func FormatUptime(d time.Duration) string {
	sec := int64(d / time.Second)
	h, m, s := sec/3600, sec/60%60, sec%60
	if days := h / 24; days > 0 {
		return fmt.Sprintf("%d days, %02d:%02d:%02d", days, h%24, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// field renders an indented "label value" line.
func (s *Session) field(label string, role Role, format string, args ...interface{}) {
	s.paint(Muted, fmt.Sprintf(" %-13s", label+":"))
	s.printf(role, format, args...)
	s.write(CRLF)
}

func (s *Session) label(label string, l node.Label) {
	s.field(label, ToneRole(l.Tone), "%s", l.Text)
}

// banner is shown before the login prompt.
func (s *Session) banner() {
	s.write(CRLF)
	s.status(Muted, "╭─────────────────────────────────────────╮")
	s.boxLine(Accent, "nodeterm "+s.conf.Version)
	s.boxLine(Info, "Sensor node diagnostic console")
	s.boxLine(Success, "HDC1080 • ADXL345 • LED x3")
	s.status(Muted, "╰─────────────────────────────────────────╯")
	s.sensorSummary()
	s.write(CRLF)
}

func (s *Session) boxLine(role Role, text string) {
	const width = 40
	n := width - len([]rune(text))
	if n < 0 {
		n = 0
	}
	s.paint(Muted, "│ ")
	s.paint(role, text)
	s.paint(Muted, fmt.Sprintf("%*s│", n, ""))
	s.write(CRLF)
}

func (s *Session) sensorSummary() {
	climate, orient := "Offline", "Offline"
	if s.conf.Sensors != nil {
		if c := s.conf.Sensors.Climate(); c.OK {
			climate = fmt.Sprintf("%.1f°C, %.1f%% RH", c.Temperature, c.Humidity)
		}
		if a := s.conf.Sensors.Accel(); a.OK {
			orient = node.Orientation(a).Text
		}
	}
	s.status(Muted, "Climate %s • Orientation %s", climate, orient)
}

func (s *Session) onOff(on bool) string {
	if on {
		return s.style.Paint(Success, "ON")
	}
	return s.style.Paint(Muted, "OFF")
}

func (s *Session) cmdStatus(ctx context.Context, line string) {
	s.heading("System Information:")
	s.status(Muted, " Multi-Sensor System:")
	if s.conf.Sensors != nil {
		c, a := s.conf.Sensors.Climate(), s.conf.Sensors.Accel()
		if c.OK {
			s.field("  HDC1080", Success, "Online")
			s.field("  Temperature", Primary, "%.1f°C", c.Temperature)
			s.field("  Humidity", Primary, "%.1f%% RH", c.Humidity)
			s.label("  Comfort", node.Comfort(c))
		} else {
			s.field("  HDC1080", Error, "Offline/Error")
		}
		if a.OK {
			s.field("  ADXL345", Success, "Online")
			s.field("  Accel", Primary, "%.3fg total", a.Magnitude)
			s.field("  Tilt", Primary, "X=%.1f°, Y=%.1f°", a.TiltX, a.TiltY)
			s.label("  Orient", node.Orientation(a))
		} else {
			s.field("  ADXL345", Error, "Offline/Error")
		}
	}
	s.field("Host", Primary, "%s", s.conf.Hostname)
	s.field("Firmware", Primary, "%s", s.conf.Version)
	s.field("Runtime", Primary, "%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	s.field("Uptime", Primary, "%s", FormatUptime(s.uptime()))
	if leds := s.conf.LEDs; leds != nil {
		s.paint(Muted, fmt.Sprintf(" %-13s", "LEDs:"))
		for n := 1; n <= leds.Count(); n++ {
			s.printf(Primary, "%d:", n)
			s.write(s.onOff(leds.State(n)) + " ")
		}
		s.write(CRLF)
	}
	if store := s.logStore(); store != nil {
		s.field("Log entries", Primary, "%d/%d", store.Count(), store.Capacity())
	}
	if s.conf.Overruns != nil {
		s.field("RX overruns", Primary, "%d", s.conf.Overruns())
	}
	s.field("Session", Primary, "%s", s.sessionID)
	if s.conf.Accounts.UsingDefaults() {
		s.field("Credentials", Warning, "factory default, change with 'account'")
	}
	if s.conf.Journal != nil {
		if recent := s.conf.Journal.Recent(); len(recent) > 0 {
			s.status(Muted, " Recent events:")
			for _, e := range recent {
				s.logLine(e.Timestamp, e.Level, e.Module, e.Message)
			}
		}
	}
	s.ruler()
}

func (s *Session) cmdUptime(ctx context.Context, line string) {
	up := s.uptime()
	s.status(Info, "System Uptime:")
	s.field("Boot time", Primary, "%s ago", FormatUptime(up))
	s.field("Milliseconds", Primary, "%d", up/time.Millisecond)
}

func (s *Session) updateSensors(ctx context.Context) {
	if s.conf.Sensors == nil {
		return
	}
	s.conf.Sensors.UpdateClimate(ctx)
	s.conf.Sensors.UpdateAccel(ctx)
}

func (s *Session) since(d time.Duration) time.Duration {
	return (s.uptime() - d) / time.Millisecond
}

func (s *Session) cmdSensors(ctx context.Context, line string) {
	if s.conf.Sensors == nil {
		s.status(Error, "Sensors not available")
		return
	}
	s.updateSensors(ctx)
	c, a := s.conf.Sensors.Climate(), s.conf.Sensors.Accel()
	s.heading("All Sensors Status:")
	s.status(Accent, "Climate Sensor (HDC1080):")
	if c.OK {
		s.field("  Temperature", Primary, "%.2f°C", c.Temperature)
		s.field("  Humidity", Primary, "%.2f%% RH", c.Humidity)
		s.label("  Status", node.Comfort(c))
		s.field("  Last update", Primary, "%d ms ago", s.since(c.Updated))
	} else {
		s.status(Error, "   Status: Offline/Error")
	}
	s.write(CRLF)
	s.status(Accent, "Accelerometer (ADXL345):")
	if a.OK {
		s.field("  X-axis", Primary, "%.3fg (%.1f°)", a.X, a.TiltX)
		s.field("  Y-axis", Primary, "%.3fg (%.1f°)", a.Y, a.TiltY)
		s.field("  Z-axis", Primary, "%.3fg", a.Z)
		s.field("  Magnitude", Primary, "%.3fg", a.Magnitude)
		s.label("  Orientation", node.Orientation(a))
		s.field("  Last update", Primary, "%d ms ago", s.since(a.Updated))
	} else {
		s.status(Error, "   Status: Offline/Error")
	}
	s.ruler()
}

func (s *Session) cmdClimate(ctx context.Context, line string) {
	s.heading("Climate Data:")
	if s.conf.Sensors == nil || !s.conf.Sensors.Climate().OK {
		s.status(Error, "Climate sensor offline or error")
		s.ruler()
		return
	}
	c := s.conf.Sensors.Climate()
	s.field("Temperature", Primary, "%.2f°C", c.Temperature)
	s.field("Humidity", Primary, "%.2f%% RH", c.Humidity)
	s.label("Status", node.Comfort(c))
	s.ruler()
}

func (s *Session) cmdAccel(ctx context.Context, line string) {
	s.heading("Detailed Accelerometer Data:")
	if s.conf.Sensors == nil {
		s.status(Error, "Accelerometer offline or error")
		s.ruler()
		return
	}
	a, err := s.conf.Sensors.UpdateAccel(ctx)
	if err != nil {
		s.status(Error, "Accelerometer offline or error")
		s.ruler()
		return
	}
	s.status(Accent, "Raw Data:")
	s.field("  X-axis", Primary, "%d LSB → %.3fg", a.XRaw, a.X)
	s.field("  Y-axis", Primary, "%d LSB → %.3fg", a.YRaw, a.Y)
	s.field("  Z-axis", Primary, "%d LSB → %.3fg", a.ZRaw, a.Z)
	s.write(CRLF)
	s.status(Accent, "Orientation Analysis:")
	s.field("  X-Tilt", Primary, "%.1f°", a.TiltX)
	s.field("  Y-Tilt", Primary, "%.1f°", a.TiltY)
	s.field("  Magnitude", Primary, "%.3fg", a.Magnitude)
	s.label("  Status", node.Orientation(a))
	s.ruler()
}

func (s *Session) cmdSensorTest(ctx context.Context, line string) {
	if s.conf.Sensors == nil {
		s.status(Error, "Sensors not available")
		return
	}
	s.heading("=== Comprehensive Sensor Test ===")
	s.status(Accent, "Testing HDC1080 (Climate)...")
	c, cerr := s.conf.Sensors.UpdateClimate(ctx)
	if cerr == nil {
		s.status(Success, "✓ HDC1080: %.2f°C, %.2f%% RH", c.Temperature, c.Humidity)
	} else {
		s.status(Error, "✗ HDC1080: %v", cerr)
	}
	s.write(CRLF)
	s.status(Accent, "Testing ADXL345 (Accelerometer)...")
	a, aerr := s.conf.Sensors.UpdateAccel(ctx)
	if aerr == nil {
		s.status(Success, "✓ ADXL345: X=%.3fg, Y=%.3fg, Z=%.3fg", a.X, a.Y, a.Z)
	} else {
		s.status(Error, "✗ ADXL345: %v", aerr)
	}
	s.ruler()
	switch {
	case cerr == nil && aerr == nil:
		s.status(Success, "ALL SENSORS OPERATIONAL!")
	case cerr == nil || aerr == nil:
		s.status(Warning, "PARTIAL SENSOR FUNCTIONALITY")
	default:
		s.status(Error, "NO SENSORS RESPONDING")
	}
}

func (s *Session) cmdBusScan(ctx context.Context, line string) {
	if s.conf.Bus == nil {
		s.status(Error, "Sensor bus not available")
		return
	}
	s.heading(fmt.Sprintf("Scanning %s bus...", s.conf.Bus.Name()))
	found, err := s.conf.Bus.Scan(ctx)
	if err == guard.ErrTimeout {
		s.status(Error, " I2C bus timeout - scan aborted")
		s.ruler()
		return
	} else if err != nil {
		s.status(Error, " Scan failed: %v", err)
		s.ruler()
		return
	}
	for _, addr := range found {
		s.printf(Success, " Device found at 0x%02X", addr)
		if name, ok := node.KnownDevices[addr]; ok {
			s.printf(Muted, " (%s)", name)
		}
		s.write(CRLF)
	}
	if len(found) == 0 {
		s.status(Error, " No I2C devices found!")
	} else {
		s.status(Info, " Total devices found: %d", len(found))
	}
	s.ruler()
}

func (s *Session) cmdBusTest(ctx context.Context, line string) {
	if s.conf.Bus == nil {
		s.status(Error, "Sensor bus not available")
		return
	}
	s.heading(fmt.Sprintf("%s Configuration Test:", s.conf.Bus.Name()))
	s.status(Info, " Testing %s basic operation...", s.conf.Bus.Name())
	switch err := s.conf.Bus.Probe(ctx); err {
	case nil:
		s.status(Success, " ✓ %s peripheral: Working", s.conf.Bus.Name())
	case guard.ErrTimeout:
		s.status(Error, " ✗ %s lock timeout", s.conf.Bus.Name())
	default:
		s.status(Warning, " ⚠ %s peripheral: %v", s.conf.Bus.Name(), err)
	}
	s.ruler()
}

func (s *Session) cmdTasks(ctx context.Context, line string) {
	s.heading("Scheduled Tasks:")
	if s.conf.Tasks == nil {
		s.status(Muted, " No scheduler attached")
		s.ruler()
		return
	}
	s.status(Muted, " %-14s %4s %8s %8s %6s", "Name", "Prio", "Period", "Runs", "Fails")
	for _, t := range s.conf.Tasks.Tasks() {
		role := Primary
		if t.LastErr != nil {
			role = Warning
		}
		s.status(role, " %-14s %4d %8v %8d %6d", t.Name, t.PriorityLevel, t.Period, t.Runs, t.Failures)
	}
	if runnables := s.conf.Tasks.Runnables(); len(runnables) > 0 {
		s.write(CRLF)
		s.status(Muted, " Background runners:")
		for _, name := range runnables {
			s.status(Primary, "  %s", name)
		}
	}
	s.field("Goroutines", Primary, "%d", runtime.NumGoroutine())
	s.ruler()
}

func (s *Session) cmdStack(ctx context.Context, line string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.heading("Memory Usage:")
	s.field("Goroutines", Primary, "%d", runtime.NumGoroutine())
	s.field("Stack in use", Primary, "%d bytes", m.StackInuse)
	s.field("Heap alloc", Primary, "%d bytes", m.HeapAlloc)
	s.field("Heap objects", Primary, "%d", m.HeapObjects)
	s.field("GC cycles", Primary, "%d", m.NumGC)
	s.ruler()
}
