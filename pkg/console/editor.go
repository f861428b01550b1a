package console

import (
	"strings"
)

// promptText renders the shell prompt without the leading line break.
func (s *Session) promptText() string {
	return s.style.Paint(Prompt, s.user) +
		s.style.Paint(Muted, "@") +
		s.style.Paint(Prompt, s.conf.Hostname) +
		s.style.Paint(Muted, ":") +
		s.style.Paint(Accent, "~") +
		s.style.Paint(Muted, "$ ")
}

func (s *Session) prompt() {
	s.write(CRLF)
	s.write(s.promptText())
}

// lineRole is the validation color of the line in NORMAL.
func (s *Session) lineRole() Role {
	switch s.table.Match(s.line.String()) {
	case MatchExact:
		return Success
	case MatchPrefix:
		return Warning
	}
	return Error
}

// recolor repaints the visible line and restores the cursor column.
func (s *Session) recolor() {
	if s.state != StateNormal {
		return
	}
	if cursor := s.line.Cursor(); cursor > 0 {
		s.write(CursorLeft(cursor))
	}
	if s.line.Len() > 0 {
		s.paint(s.lineRole(), s.line.String())
	}
	s.write(EraseEOL)
	if back := s.line.Len() - s.line.Cursor(); back > 0 {
		s.write(CursorLeft(back))
	}
}

// redrawSuffix erases from the cursor and re-emits the rest of the line.
func (s *Session) redrawSuffix() {
	s.write(EraseEOL)
	suffix := s.line.Suffix()
	if len(suffix) > 0 {
		s.out.Write(suffix)
		s.write(CursorLeft(len(suffix)))
	}
}

func (s *Session) insert(c byte) {
	if s.line.Full() {
		s.refuse()
		return
	}
	s.history.Detach()
	if s.state.Masked() {
		s.line.Append(c)
		s.write("*")
		return
	}
	s.line.Insert(c)
	s.out.WriteByte(c)
	if s.line.Cursor() != s.line.Len() {
		s.redrawSuffix()
	}
	s.recolor()
}

// refuse marks a refused byte with a "!" after the end of the line and puts
// the cursor back. The next edit erases the mark.
func (s *Session) refuse() {
	back := s.line.Len() - s.line.Cursor()
	if back > 0 {
		s.write(CursorRight(back))
	}
	s.paint(Error, "!")
	s.write(CursorLeft(back + 1))
}

func (s *Session) backspace() {
	if !s.line.Delete() {
		return
	}
	s.history.Detach()
	s.write(CursorLeft(1))
	s.redrawSuffix()
	s.recolor()
}

func (s *Session) moveLeft() {
	if s.line.MoveLeft() {
		s.write(CursorLeft(1))
	}
}

func (s *Session) moveRight() {
	if s.line.MoveRight() {
		s.write(CursorRight(1))
	}
}

// replaceLine shows text as the whole command line.
func (s *Session) replaceLine(text string) {
	s.line.Set(text)
	s.write("\r" + EraseEOL)
	s.write(s.promptText())
	s.redrawLine()
}

// redrawLine emits the line after a freshly written prompt.
func (s *Session) redrawLine() {
	if s.line.Len() > 0 {
		s.paint(s.lineRole(), s.line.String())
	}
	if back := s.line.Len() - s.line.Cursor(); back > 0 {
		s.write(CursorLeft(back))
	}
}

func (s *Session) navigate(older bool) {
	var text string
	var ok bool
	if older {
		text, ok = s.history.Older(s.line.String())
	} else {
		text, ok = s.history.Newer()
	}
	if ok {
		s.replaceLine(text)
	}
}

func (s *Session) complete() {
	c := s.table.Complete(s.line.String())
	switch {
	case s.line.Len() == 0:
	case len(c.Matches) == 0:
		s.write(Bell)
	case c.Ambiguous():
		s.write(Bell + CRLF)
		s.paint(Muted, strings.Join(c.Matches, "  "))
		s.prompt()
		s.redrawLine()
	default:
		if back := s.line.Len() - s.line.Cursor(); back > 0 {
			s.write(CursorRight(back))
			s.line.MoveEnd()
		}
		for _, ch := range []byte(c.Extension) {
			if s.line.Full() {
				break
			}
			s.insert(ch)
		}
	}
}
