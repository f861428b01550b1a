// Package console is the interactive session engine of the node: key
// decoding, the line editor with history and completion, authentication,
// the account wizard, the logs viewer and the command dispatcher.
package console

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/nodeterm/pkg/account"
	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/logstore"
	"github.com/robotalks/nodeterm/pkg/node"
)

// Sender is the transmit side of the link.
type Sender interface {
	Send(ctx context.Context, p []byte) error
}

// Source is the receive side of the link.
type Source interface {
	Ready() <-chan struct{}
	Done() <-chan struct{}
	Pop() (byte, bool)
}

// TaskTable lists the scheduled tasks.
type TaskTable interface {
	Tasks() []framework.TaskInfo
	Runnables() []string
}

// Config wires a Session to its collaborators. Sensors, Bus, LEDs and Tasks
// are optional.
type Config struct {
	Out      Sender
	Clock    framework.Clock
	Accounts *account.Store
	Journal  *logstore.Journal
	Sensors  node.Sensors
	Bus      node.Bus
	LEDs     node.LEDs
	Tasks    TaskTable
	Style    *Style

	Hostname      string
	Version       string
	IdleTimeout   time.Duration
	CheckInterval time.Duration
	// Overruns reports bytes dropped by the receive ring.
	Overruns func() uint64
}

// Default timing of a session.
const (
	DefaultIdleTimeout   = 300000 * time.Millisecond
	DefaultCheckInterval = time.Second
)

// State is the session state.
type State int

// States.
const (
	StateUsername State = iota
	StatePassword
	StateNormal
	StateLogsViewer
	StateAccountVerify
	StateAccountNewUsername
	StateAccountNewPassword
	StateAccountConfirmPassword
)

var stateNames = [...]string{
	StateUsername:               "USERNAME_ENTRY",
	StatePassword:               "PASSWORD_ENTRY",
	StateNormal:                 "NORMAL",
	StateLogsViewer:             "LOGS_VIEWER",
	StateAccountVerify:          "ACCOUNT_VERIFY",
	StateAccountNewUsername:     "ACCOUNT_NEW_USERNAME",
	StateAccountNewPassword:     "ACCOUNT_NEW_PASSWORD",
	StateAccountConfirmPassword: "ACCOUNT_CONFIRM_PASSWORD",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LoggedIn tells whether s is one of the authenticated states.
func (s State) LoggedIn() bool {
	return s >= StateNormal
}

// Masked tells whether input is captured as a secret.
func (s State) Masked() bool {
	switch s {
	case StatePassword, StateAccountVerify, StateAccountNewPassword, StateAccountConfirmPassword:
		return true
	}
	return false
}

// Session is one console on a link. It is driven from a single goroutine.
type Session struct {
	conf    Config
	style   *Style
	table   *CommandTable
	keys    KeyDecoder
	line    LineBuffer
	history *History
	out     bytes.Buffer

	state             State
	lastActivity      time.Duration
	user              string
	sessionID         string
	candidateUsername string
	candidatePassword string
	logsPage          int
	logsPages         int
	pendingClear      bool
}

// NewSession creates a Session waiting for a username.
func NewSession(conf Config) *Session {
	if conf.Style == nil {
		conf.Style = NewStyle(false)
	}
	if conf.IdleTimeout <= 0 {
		conf.IdleTimeout = DefaultIdleTimeout
	}
	if conf.CheckInterval <= 0 {
		conf.CheckInterval = DefaultCheckInterval
	}
	if conf.Hostname == "" {
		conf.Hostname = "node"
	}
	s := &Session{
		conf:    conf,
		style:   conf.Style,
		table:   Commands(),
		history: NewHistory(),
	}
	s.out.Grow(4096)
	return s
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// LastActivity returns the uptime of the last input while logged in.
func (s *Session) LastActivity() time.Duration { return s.lastActivity }

// SessionID returns the id of the authenticated session, empty when logged
// out.
func (s *Session) SessionID() string { return s.sessionID }

// User returns the authenticated user.
func (s *Session) User() string { return s.user }

// Line returns the content of the command line.
func (s *Session) Line() string { return s.line.String() }

// History returns the command history.
func (s *Session) History() *History { return s.history }

// Table returns the command table.
func (s *Session) Table() *CommandTable { return s.table }

// Start shows the banner and the login prompt.
func (s *Session) Start(ctx context.Context) {
	s.logout()
	s.flush(ctx)
}

// Feed processes received bytes and sends the rendered output once.
func (s *Session) Feed(ctx context.Context, p []byte) {
	for _, b := range p {
		s.handleByte(ctx, b)
	}
	s.flush(ctx)
}

// Run drives the session from src until ctx is done or the link closed.
// Input and the idle check are processed sequentially.
func (s *Session) Run(ctx context.Context, src Source) error {
	s.Start(ctx)
	ticker := time.NewTicker(s.conf.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-src.Done():
			s.drain(ctx, src)
			return nil
		case <-src.Ready():
			s.drain(ctx, src)
		case <-ticker.C:
			s.CheckTimeout(ctx)
		}
	}
}

func (s *Session) drain(ctx context.Context, src Source) {
	for {
		b, ok := src.Pop()
		if !ok {
			break
		}
		s.handleByte(ctx, b)
	}
	s.flush(ctx)
}

// CheckTimeout logs out a session idle longer than the timeout.
func (s *Session) CheckTimeout(ctx context.Context) {
	if !s.state.LoggedIn() {
		return
	}
	if s.conf.Clock.Uptime()-s.lastActivity <= s.conf.IdleTimeout {
		return
	}
	s.write(CRLF)
	s.status(Warning, "Session timeout - automatically logged out")
	s.journal(ctx, logstore.LevelLogin, "Session timeout")
	s.logout()
	s.flush(ctx)
}

func (s *Session) flush(ctx context.Context) {
	if s.out.Len() == 0 {
		return
	}
	if err := s.conf.Out.Send(ctx, s.out.Bytes()); err != nil {
		glog.V(2).Infof("console: output dropped: %v", err)
	}
	s.out.Reset()
}

func (s *Session) write(text string) {
	s.out.WriteString(text)
}

func (s *Session) paint(role Role, text string) {
	s.out.WriteString(s.style.Paint(role, text))
}

func (s *Session) printf(role Role, format string, args ...interface{}) {
	s.paint(role, fmt.Sprintf(format, args...))
}

// status renders a single colored status line.
func (s *Session) status(role Role, format string, args ...interface{}) {
	s.printf(role, format, args...)
	s.write(CRLF)
}

func (s *Session) journal(ctx context.Context, level logstore.Level, format string, args ...interface{}) {
	if s.conf.Journal != nil {
		s.conf.Journal.Logf(ctx, level, "auth", format, args...)
	}
}

func (s *Session) uptime() time.Duration {
	return s.conf.Clock.Uptime()
}

func (s *Session) handleByte(ctx context.Context, b byte) {
	k := s.keys.Decode(b)
	if k.Kind == KeyNone {
		return
	}
	if s.state.LoggedIn() {
		s.lastActivity = s.uptime()
	}
	if s.state == StateLogsViewer {
		if k.Kind == KeyChar {
			s.logsViewerKey(ctx, k.Char)
		}
		return
	}
	switch k.Kind {
	case KeyChar:
		s.insert(k.Char)
	case KeyBackspace:
		s.backspace()
	case KeyEnter:
		s.submit(ctx)
	case KeyTab:
		if s.state == StateNormal {
			s.complete()
		}
	case KeyUp, KeyDown:
		if s.state == StateNormal {
			s.navigate(k.Kind == KeyUp)
		}
	case KeyLeft:
		if s.state == StateNormal {
			s.moveLeft()
		}
	case KeyRight:
		if s.state == StateNormal {
			s.moveRight()
		}
	}
}

func (s *Session) submit(ctx context.Context) {
	line := s.line.String()
	s.line.Reset()
	s.history.Detach()
	s.write(CRLF)
	switch s.state {
	case StateUsername:
		s.submitUsername(ctx, line)
	case StatePassword:
		s.submitPassword(ctx, line)
	case StateNormal:
		s.dispatch(ctx, line)
	case StateAccountVerify:
		s.accountVerify(ctx, line)
	case StateAccountNewUsername:
		s.accountNewUsername(ctx, line)
	case StateAccountNewPassword:
		s.accountNewPassword(ctx, line)
	case StateAccountConfirmPassword:
		s.accountConfirm(ctx, line)
	}
}

func (s *Session) submitUsername(ctx context.Context, line string) {
	if line == s.conf.Accounts.Username() {
		s.candidateUsername = line
		s.state = StatePassword
		s.paint(Muted, "password: ")
		s.journal(ctx, logstore.LevelInfo, "Valid username")
		return
	}
	s.status(Error, "Invalid username")
	s.journal(ctx, logstore.LevelWarning, "Invalid username")
	s.paint(Muted, "login: ")
}

func (s *Session) submitPassword(ctx context.Context, line string) {
	user := s.candidateUsername
	s.candidateUsername = ""
	if !s.conf.Accounts.Validate(user, line) {
		s.state = StateUsername
		s.status(Error, "Access denied")
		s.journal(ctx, logstore.LevelError, "Authentication failed")
		s.paint(Muted, "login: ")
		return
	}
	s.state = StateNormal
	s.user = user
	s.sessionID = uuid.New().String()
	s.lastActivity = s.uptime()
	s.pendingClear = false
	glog.Infof("console: %s logged in, session %s", user, s.sessionID)
	s.journal(ctx, logstore.LevelLogin, "Login %s (session %.8s)", user, s.sessionID)
	s.status(Success, "Welcome! Type 'help' for commands")
	if s.conf.Sensors != nil {
		s.conf.Sensors.UpdateClimate(ctx)
		s.conf.Sensors.UpdateAccel(ctx)
	}
	s.prompt()
}

// dispatch runs a submitted line in NORMAL.
func (s *Session) dispatch(ctx context.Context, line string) {
	trimmed := trimLine(line)
	if trimmed != "" {
		s.history.Push(trimmed)
	}
	pendingClear := s.pendingClear
	s.pendingClear = false
	switch cmd := s.table.Lookup(trimmed); {
	case trimmed == "":
	case cmd != nil:
		if cmd.Name == cmdConfirmClearLogs {
			s.pendingClear = pendingClear
		}
		cmd.Handler(s, ctx, trimmed)
	default:
		s.status(Error, "Unknown command: %s", trimmed)
		s.paint(Muted, "Type 'help' for available commands")
		s.write(CRLF)
	}
	if s.state == StateNormal {
		s.prompt()
	}
}

// logout returns to the login prompt.
func (s *Session) logout() {
	s.state = StateUsername
	s.user = ""
	s.sessionID = ""
	s.lastActivity = 0
	s.candidateUsername = ""
	s.candidatePassword = ""
	s.pendingClear = false
	s.line.Reset()
	s.history.Detach()
	s.keys.Reset()
	s.banner()
	s.paint(Muted, "login: ")
}

func trimLine(line string) string {
	start, end := 0, len(line)
	for start < end && isSpace(line[start]) {
		start++
	}
	for end > start && isSpace(line[end-1]) {
		end--
	}
	return line[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
