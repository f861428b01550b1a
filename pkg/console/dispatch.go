package console

import (
	"context"
	"strings"

	"github.com/robotalks/nodeterm/pkg/logstore"
)

const (
	cmdClearLogs        = "clear-logs"
	cmdConfirmClearLogs = "confirm-clear-logs"
)

// Command groups, in help order.
const (
	GroupBasic       = "Basic Commands"
	GroupSystem      = "System Information"
	GroupLED         = "LED Control"
	GroupSensors     = "Multi-Sensor"
	GroupDiagnostics = "Diagnostics"
)

var groups = []string{GroupBasic, GroupSystem, GroupLED, GroupSensors, GroupDiagnostics}

// Commands returns the command table of a logged-in session.
func Commands() *CommandTable {
	return NewCommandTable(
		Command{Name: "whoami", Help: "Show current user", Group: GroupBasic, Handler: (*Session).cmdWhoami},
		Command{Name: "clear", Help: "Clear terminal", Group: GroupBasic, Handler: (*Session).cmdClear},
		Command{Name: "history", Help: "Show command history", Group: GroupBasic, Handler: (*Session).cmdHistory},
		Command{Name: "logs", Help: "Browse stored logs", Group: GroupBasic, Handler: (*Session).cmdLogs},
		Command{Name: cmdClearLogs, Help: "Erase stored logs (asks to confirm)", Group: GroupBasic, Handler: (*Session).cmdClearLogs},
		Command{Name: cmdConfirmClearLogs, Help: "Confirm erasing stored logs", Group: GroupBasic, Handler: (*Session).cmdConfirmClearLogs},
		Command{Name: "account", Help: "Change username and password", Group: GroupBasic, Handler: (*Session).cmdAccount},
		Command{Name: "help", Help: "Show this help", Group: GroupBasic, Handler: (*Session).cmdHelp},
		Command{Name: "logout", Help: "Exit session", Group: GroupBasic, Handler: (*Session).cmdLogout},
		Command{Name: "status", Help: "Show comprehensive system status", Group: GroupSystem, Handler: (*Session).cmdStatus},
		Command{Name: "uptime", Help: "Show system uptime", Group: GroupSystem, Handler: (*Session).cmdUptime},
		Command{Name: "tasks", Help: "Show scheduled tasks", Group: GroupSystem, Handler: (*Session).cmdTasks},
		Command{Name: "stack", Help: "Show goroutine and memory usage", Group: GroupSystem, Handler: (*Session).cmdStack},
		Command{Name: "led", Usage: "led on|off N|all [-t SEC]", Help: "Control LED N (1-3), optional auto-off timer", Group: GroupLED, Prefix: true, Handler: (*Session).cmdLED},
		Command{Name: "sensors", Help: "Show all sensors", Group: GroupSensors, Handler: (*Session).cmdSensors},
		Command{Name: "climate", Help: "Temperature/humidity details", Group: GroupSensors, Handler: (*Session).cmdClimate},
		Command{Name: "accel", Help: "Detailed accelerometer", Group: GroupSensors, Handler: (*Session).cmdAccel},
		Command{Name: "sensortest", Help: "Comprehensive sensor test", Group: GroupDiagnostics, Handler: (*Session).cmdSensorTest},
		Command{Name: "i2cscan", Help: "Scan sensor bus", Group: GroupDiagnostics, Handler: (*Session).cmdBusScan},
		Command{Name: "i2ctest", Help: "Test sensor bus", Group: GroupDiagnostics, Handler: (*Session).cmdBusTest},
	)
}

const rule = "───────────────────────────────────────────"

func (s *Session) heading(title string) {
	s.status(Info, "%s", title)
	s.status(Muted, "%s", rule)
}

func (s *Session) ruler() {
	s.status(Muted, "%s", rule)
}

func (s *Session) cmdWhoami(ctx context.Context, line string) {
	s.status(Info, "%s", s.user)
}

func (s *Session) cmdClear(ctx context.Context, line string) {
	s.write(ClearScreen)
}

func (s *Session) cmdHistory(ctx context.Context, line string) {
	s.status(Info, "Command History:")
	for n, cmd := range s.history.Entries() {
		s.printf(Muted, " %d. ", n+1)
		s.paint(Primary, cmd)
		s.write(CRLF)
	}
}

func (s *Session) cmdHelp(ctx context.Context, line string) {
	s.heading("Available Commands:")
	for n, group := range groups {
		if n > 0 {
			s.write(CRLF)
		}
		s.write(" ")
		s.paint(Accent, group+":")
		s.write(CRLF)
		for _, cmd := range s.table.Commands() {
			if cmd.Group != group {
				continue
			}
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			s.write(" ")
			s.paint(Accent, usage)
			s.paint(Muted, strings.Repeat(" ", padding(usage, 17))+cmd.Help)
			s.write(CRLF)
		}
	}
	s.ruler()
}

func padding(text string, width int) int {
	if n := width - len(text); n > 0 {
		return n
	}
	return 1
}

func (s *Session) cmdLogout(ctx context.Context, line string) {
	s.status(Warning, "Goodbye!")
	s.journal(ctx, logstore.LevelLogin, "User %s logged out", s.user)
	s.logout()
}

func (s *Session) cmdLED(ctx context.Context, line string) {
	leds := s.conf.LEDs
	if leds == nil {
		s.status(Error, "LEDs not available")
		return
	}
	cmd, err := ParseLED(line)
	if err != nil {
		s.status(Error, "Invalid LED number (1-3)")
		return
	}
	word := "off"
	if cmd.On {
		word = "on"
	}
	if cmd.All {
		leds.SetAll(cmd.On)
		if cmd.On && cmd.Timer > 0 {
			for n := 1; n <= leds.Count(); n++ {
				leds.SetTimer(n, cmd.Timer)
			}
		}
		s.status(Success, "All LEDs turned %s", word)
		s.logLED(ctx, "All LEDs %s", word)
		return
	}
	if err := leds.Set(cmd.LED, cmd.On); err != nil {
		s.status(Error, "Invalid LED number (1-%d)", leds.Count())
		return
	}
	if cmd.On && cmd.Timer > 0 {
		leds.SetTimer(cmd.LED, cmd.Timer)
		s.status(Success, "LED%d turned on for %v", cmd.LED, cmd.Timer)
	} else {
		s.status(Success, "LED%d turned %s", cmd.LED, word)
	}
	s.logLED(ctx, "LED%d %s", cmd.LED, word)
}

func (s *Session) logLED(ctx context.Context, format string, args ...interface{}) {
	if s.conf.Journal != nil {
		s.conf.Journal.Logf(ctx, logstore.LevelInfo, "led", format, args...)
	}
}

func (s *Session) logStore() *logstore.Store {
	if s.conf.Journal == nil {
		return nil
	}
	return s.conf.Journal.Store()
}

func (s *Session) cmdClearLogs(ctx context.Context, line string) {
	store := s.logStore()
	if store == nil {
		s.status(Error, "Log storage not available")
		return
	}
	s.status(Warning, "This erases all %d stored log records", store.Count())
	s.status(Muted, "Type '%s' to proceed", cmdConfirmClearLogs)
	s.pendingClear = true
}

func (s *Session) cmdConfirmClearLogs(ctx context.Context, line string) {
	if !s.pendingClear {
		s.status(Error, "Run '%s' first", cmdClearLogs)
		return
	}
	s.pendingClear = false
	if err := s.logStore().EraseAll(ctx); err != nil {
		s.status(Error, "Log storage busy, logs not cleared")
		return
	}
	s.status(Success, "All stored logs cleared")
	s.journal(ctx, logstore.LevelWarning, "Logs cleared by %s", s.user)
}
