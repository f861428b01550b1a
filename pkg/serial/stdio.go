package serial

import (
	"os"

	"golang.org/x/term"
)

// Stdio is the process terminal used as the serial link. It is switched to
// raw mode when stdin is a terminal. Reads go through a pollable handle of
// stdin so Close interrupts a pending Read.
type Stdio struct {
	fd    int
	in    *os.File
	out   *os.File
	state *term.State
	reset func()
}

// OpenStdio opens the process terminal.
func OpenStdio() (*Stdio, error) {
	return newStdio(os.Stdin, os.Stdout)
}

func newStdio(in, out *os.File) (*Stdio, error) {
	s := &Stdio{fd: int(in.Fd()), out: out}
	if term.IsTerminal(s.fd) {
		state, err := term.MakeRaw(s.fd)
		if err != nil {
			return nil, err
		}
		s.state = state
	}
	r, reset, err := pollable(in)
	if err != nil {
		s.restore()
		return nil, err
	}
	s.in, s.reset = r, reset
	return s, nil
}

// Read implements io.Reader.
func (s *Stdio) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

// Write implements io.Writer.
func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Close restores the terminal and closes the read handle.
func (s *Stdio) Close() error {
	err := s.in.Close()
	if s.reset != nil {
		s.reset()
		s.reset = nil
	}
	s.restore()
	return err
}

func (s *Stdio) restore() {
	if s.state != nil {
		term.Restore(s.fd, s.state)
		s.state = nil
	}
}

// Name implements Link.
func (s *Stdio) Name() string {
	return "stdio"
}
