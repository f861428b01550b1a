package console

import (
	"errors"
	"math"
	"strings"
	"time"
)

// ErrInvalidLED indicates an led line names no LED.
var ErrInvalidLED = errors.New("invalid LED number (1-3)")

// LEDCommand is a parsed led line.
type LEDCommand struct {
	On    bool
	All   bool
	LED   int
	Timer time.Duration
}

// ParseLED parses an led line by keyword substrings: " on" turns on,
// "-t " gives the timer seconds, " all" selects every LED, otherwise the
// first of " 1", " 2", " 3" present selects the LED. So "led on 2 -t 15"
// selects LED 1, as accepted by earlier firmware.
func ParseLED(line string) (cmd LEDCommand, err error) {
	cmd.On = strings.Contains(line, " on")
	if idx := strings.Index(line, "-t "); idx >= 0 {
		if sec := atoi(line[idx+3:]); sec > 0 {
			cmd.Timer = time.Duration(sec) * time.Second
		}
	}
	if strings.Contains(line, " all") {
		cmd.All = true
		return
	}
	for n, key := range []string{" 1", " 2", " 3"} {
		if strings.Contains(line, key) {
			cmd.LED = n + 1
			return
		}
	}
	return cmd, ErrInvalidLED
}

// atoi parses a leading decimal like C atoi: leading spaces, optional sign,
// digits up to the first non-digit, 0 when none.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	v := 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			break
		}
		if v < math.MaxInt32/10 {
			v = v*10 + int(c-'0')
		}
	}
	if neg {
		return -v
	}
	return v
}
