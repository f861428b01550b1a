package console

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeAll(d *KeyDecoder, in string) (keys []Key) {
	for _, b := range []byte(in) {
		if k := d.Decode(b); k.Kind != KeyNone {
			keys = append(keys, k)
		}
	}
	return
}

func TestKeyDecoder(t *testing.T) {
	for _, c := range []struct {
		name string
		in   string
		keys []Key
	}{
		{"chars", "ab", []Key{{KeyChar, 'a'}, {KeyChar, 'b'}}},
		{"cr", "\r", []Key{{Kind: KeyEnter}}},
		{"lf", "\n", []Key{{Kind: KeyEnter}}},
		{"crlf", "\r\n", []Key{{Kind: KeyEnter}}},
		{"lflf", "\n\n", []Key{{Kind: KeyEnter}, {Kind: KeyEnter}}},
		{"backspace", "\x7f\x08", []Key{{Kind: KeyBackspace}, {Kind: KeyBackspace}}},
		{"tab", "\t", []Key{{Kind: KeyTab}}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []Key{{Kind: KeyUp}, {Kind: KeyDown}, {Kind: KeyRight}, {Kind: KeyLeft}}},
		{"unknown csi", "\x1b[Zx", []Key{{KeyChar, 'x'}}},
		{"esc then char", "\x1bq", []Key{{KeyChar, 'q'}}},
		{"delete key", "a\x1b[3~b", []Key{{KeyChar, 'a'}, {KeyChar, 'b'}}},
		{"modified arrow", "\x1b[1;5C", []Key{{Kind: KeyRight}}},
		{"aborted csi", "\x1b[2\rx", []Key{{Kind: KeyEnter}, {KeyChar, 'x'}}},
		{"control ignored", "\x01\x02", nil},
	} {
		t.Run(c.name, func(t *testing.T) {
			var d KeyDecoder
			require.Equal(t, c.keys, decodeAll(&d, c.in))
		})
	}
}

func TestLineBufferEditing(t *testing.T) {
	var l LineBuffer
	for _, c := range []byte("hlp") {
		require.True(t, l.Insert(c))
	}
	require.True(t, l.MoveLeft())
	require.True(t, l.MoveLeft())
	require.True(t, l.Insert('e'))
	require.Equal(t, "help", l.String())
	require.Equal(t, 2, l.Cursor())
	require.Equal(t, "lp", string(l.Suffix()))
	require.True(t, l.Delete())
	require.Equal(t, "hlp", l.String())
	l.MoveEnd()
	require.Equal(t, 3, l.Cursor())
	require.False(t, l.MoveRight())
}

func TestLineBufferFull(t *testing.T) {
	var l LineBuffer
	for n := 0; n < MaxLineLength; n++ {
		require.True(t, l.Append('x'))
	}
	require.True(t, l.Full())
	require.False(t, l.Insert('y'))
	require.False(t, l.Append('y'))
	require.Equal(t, MaxLineLength, l.Len())
}

func TestLineBufferInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var l LineBuffer
	var model []byte
	cursor := 0
	for n := 0; n < 5000; n++ {
		switch rnd.Intn(6) {
		case 0, 1:
			c := byte('a' + rnd.Intn(26))
			if l.Insert(c) {
				model = append(model[:cursor], append([]byte{c}, model[cursor:]...)...)
				cursor++
			}
		case 2:
			if l.Delete() {
				model = append(model[:cursor-1], model[cursor:]...)
				cursor--
			}
		case 3:
			if l.MoveLeft() {
				cursor--
			}
		case 4:
			if l.MoveRight() {
				cursor++
			}
		case 5:
			if rnd.Intn(20) == 0 {
				l.Reset()
				model, cursor = nil, 0
			}
		}
		require.True(t, 0 <= l.Cursor() && l.Cursor() <= l.Len() && l.Len() <= MaxLineLength)
		require.Equal(t, string(model), l.String())
		require.Equal(t, cursor, l.Cursor())
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	_, ok := h.Older("live")
	require.False(t, ok)

	for _, cmd := range []string{"a", "b", "b", "c", "d", "e", "f"} {
		h.Push(cmd)
	}
	require.Equal(t, HistorySize, h.Len())
	require.Equal(t, []string{"b", "c", "d", "e", "f"}, h.Entries())

	text, ok := h.Older("typing")
	require.True(t, ok)
	require.Equal(t, "f", text)
	require.True(t, h.Navigating())
	for n := 0; n < 10; n++ {
		text, _ = h.Older("ignored")
	}
	require.Equal(t, "b", text)
	text, _ = h.Newer()
	require.Equal(t, "c", text)
	for n := 0; n < 3; n++ {
		h.Newer()
	}
	text, ok = h.Newer()
	require.True(t, ok)
	require.Equal(t, "typing", text)
	require.False(t, h.Navigating())
	_, ok = h.Newer()
	require.False(t, ok)
}

func TestCommandTableMatch(t *testing.T) {
	table := Commands()
	for _, c := range []struct {
		line string
		m    Match
	}{
		{"help", MatchExact},
		{"he", MatchPrefix},
		{"led on 1", MatchExact},
		{"xyz", MatchNone},
		{"", MatchNone},
		{"helpme", MatchNone},
	} {
		require.Equal(t, c.m, table.Match(c.line), c.line)
	}
	require.Equal(t, "led", table.Lookup("led on all").Name)
	require.Nil(t, table.Lookup("help me"))
	require.Equal(t, "clear", table.Lookup("clear").Name)
}

func TestCommandTableComplete(t *testing.T) {
	table := Commands()
	c := table.Complete("he")
	require.Equal(t, []string{"help"}, c.Matches)
	require.Equal(t, "lp", c.Extension)
	require.False(t, c.Ambiguous())

	c = table.Complete("l")
	require.Equal(t, []string{"logs", "logout", "led"}, c.Matches)
	require.True(t, c.Ambiguous())

	c = table.Complete("lo")
	require.Equal(t, "g", c.Extension)
	require.False(t, c.Ambiguous())

	require.Empty(t, table.Complete("zz").Matches)
	require.Empty(t, table.Complete("").Matches)
}

func TestParseLED(t *testing.T) {
	for _, c := range []struct {
		line string
		cmd  LEDCommand
		err  error
	}{
		{"led on 1", LEDCommand{On: true, LED: 1}, nil},
		{"led off 3", LEDCommand{LED: 3}, nil},
		{"led on all", LEDCommand{On: true, All: true}, nil},
		{"led off all", LEDCommand{All: true}, nil},
		{"led on 2 -t 5", LEDCommand{On: true, LED: 2, Timer: 5 * time.Second}, nil},
		// " 1" of the timer argument wins over " 2"
		{"led on 2 -t 15", LEDCommand{On: true, LED: 1, Timer: 15 * time.Second}, nil},
		{"led on 1 -t 0", LEDCommand{On: true, LED: 1}, nil},
		{"led on 1 -t abc", LEDCommand{On: true, LED: 1}, nil},
		{"led on 4", LEDCommand{On: true}, ErrInvalidLED},
		{"led", LEDCommand{}, ErrInvalidLED},
	} {
		t.Run(c.line, func(t *testing.T) {
			cmd, err := ParseLED(c.line)
			require.Equal(t, c.err, err)
			require.Equal(t, c.cmd, cmd)
		})
	}
}

func TestFormatUptime(t *testing.T) {
	require.Equal(t, "00:00:05", FormatUptime(5*time.Second))
	require.Equal(t, "01:02:03", FormatUptime(time.Hour+2*time.Minute+3*time.Second))
	require.Equal(t, "2 days, 03:00:00", FormatUptime(51*time.Hour))
	require.Equal(t, "00:01:01", FormatTimestamp(61500))
}
