package console

import (
	"strconv"

	"github.com/fatih/color"

	"github.com/robotalks/nodeterm/pkg/logstore"
	"github.com/robotalks/nodeterm/pkg/node"
)

// Terminal control sequences.
const (
	EraseEOL    = "\x1b[K"
	ClearScreen = "\x1b[2J\x1b[H"
	Bell        = "\a"
	CRLF        = "\r\n"
)

// CursorLeft moves the cursor n columns left.
func CursorLeft(n int) string {
	return "\x1b[" + strconv.Itoa(n) + "D"
}

// CursorRight moves the cursor n columns right.
func CursorRight(n int) string {
	return "\x1b[" + strconv.Itoa(n) + "C"
}

// Role is a semantic color.
type Role int

// Roles.
const (
	Primary Role = iota
	Success
	Error
	Warning
	Info
	Muted
	Accent
	Prompt
	numRoles
)

var roleAttrs = [numRoles]color.Attribute{
	Primary: color.FgHiWhite,
	Success: color.FgHiGreen,
	Error:   color.FgHiRed,
	Warning: color.FgYellow,
	Info:    color.FgHiCyan,
	Muted:   color.FgHiBlack,
	Accent:  color.FgHiMagenta,
	Prompt:  color.FgHiBlue,
}

// Style paints text by Role. The link is not a tty of this process, so
// colors are forced on unless NoColor.
type Style struct {
	colors [numRoles]*color.Color
}

// NewStyle creates a Style.
func NewStyle(noColor bool) *Style {
	s := &Style{}
	for n, attr := range roleAttrs {
		c := color.New(attr)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		s.colors[n] = c
	}
	return s
}

// Paint renders text in role.
func (s *Style) Paint(role Role, text string) string {
	return s.colors[role].Sprint(text)
}

// LevelRole returns the color of a log level.
func LevelRole(level logstore.Level) Role {
	switch level {
	case logstore.LevelInfo:
		return Info
	case logstore.LevelSuccess, logstore.LevelSensor:
		return Success
	case logstore.LevelError:
		return Error
	case logstore.LevelWarning:
		return Warning
	case logstore.LevelLogin, logstore.LevelDebug:
		return Accent
	}
	return Primary
}

// ToneRole returns the color of a classification tone.
func ToneRole(tone node.Tone) Role {
	switch tone {
	case node.ToneGood:
		return Success
	case node.ToneNotice:
		return Info
	case node.ToneWarn:
		return Warning
	case node.ToneBad:
		return Error
	}
	return Muted
}
