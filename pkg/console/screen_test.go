package console

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// screen emulates the current row of a terminal: printable bytes, CR, LF,
// ESC [ K, ESC [ n C and ESC [ n D. Other sequences are skipped.
type screen struct {
	row []byte
	col int
	esc bool
	seq []byte
}

func (sc *screen) Write(p []byte) {
	for _, b := range p {
		if sc.esc {
			sc.seq = append(sc.seq, b)
			switch {
			case len(sc.seq) == 1 && b != '[':
				sc.esc, sc.seq = false, nil
			case len(sc.seq) > 1 && b >= 0x40 && b <= 0x7e:
				sc.csi(b, string(sc.seq[1:len(sc.seq)-1]))
				sc.esc, sc.seq = false, nil
			}
			continue
		}
		switch {
		case b == keyESC:
			sc.esc = true
		case b == '\r':
			sc.col = 0
		case b == '\n':
			sc.row = sc.row[:0]
		case b >= 0x20 && b <= 0x7e:
			for len(sc.row) < sc.col {
				sc.row = append(sc.row, ' ')
			}
			if sc.col < len(sc.row) {
				sc.row[sc.col] = b
			} else {
				sc.row = append(sc.row, b)
			}
			sc.col++
		}
	}
}

func (sc *screen) csi(final byte, params string) {
	n := 1
	if params != "" {
		n, _ = strconv.Atoi(params)
	}
	switch final {
	case 'K':
		if sc.col < len(sc.row) {
			sc.row = sc.row[:sc.col]
		}
	case 'C':
		sc.col += n
	case 'D':
		if sc.col -= n; sc.col < 0 {
			sc.col = 0
		}
	}
}

const testPrompt = "admin@node-test:~$ "

// newScreenEnv logs in with colors on and mirrors the output on a screen.
func newScreenEnv(t *testing.T) (*sessionEnv, *screen) {
	env := newSessionEnv(t)
	env.session.style = NewStyle(false)
	sc := &screen{}
	env.feed("admin\r")
	sc.Write([]byte(env.feed("1234\r")))
	require.Equal(t, StateNormal, env.session.State())
	requireScreen(t, env, sc)
	return env, sc
}

// requireScreen checks the row shows prompt and line with the cursor at the
// editing position. A refused-byte mark may follow a full line.
func requireScreen(t *testing.T, env *sessionEnv, sc *screen) {
	row := string(sc.row)
	if env.session.line.Full() {
		row = strings.TrimSuffix(row, "!")
	}
	require.Equal(t, testPrompt+env.session.Line(), row)
	require.Equal(t, len(testPrompt)+env.session.line.Cursor(), sc.col)
}

func typeKeys(t *testing.T, env *sessionEnv, sc *screen, keys ...string) {
	for _, k := range keys {
		sc.Write([]byte(env.feed(k)))
		requireScreen(t, env, sc)
	}
}

const (
	keyLeft  = "\x1b[D"
	keyRight = "\x1b[C"
	keyUp    = "\x1b[A"
	keyDown  = "\x1b[B"
	keyBack  = "\x7f"
)

func TestEditorScreenMidLineEditing(t *testing.T) {
	env, sc := newScreenEnv(t)
	typeKeys(t, env, sc, "h", "l", "p", keyLeft, keyLeft, "e")
	require.Equal(t, "help", env.session.Line())
	require.Equal(t, 2, env.session.line.Cursor())

	typeKeys(t, env, sc, keyRight, keyBack, keyLeft, keyBack)
	require.Equal(t, "ep", env.session.Line())
	require.Equal(t, 0, env.session.line.Cursor())

	typeKeys(t, env, sc, keyBack, keyLeft, "x", keyRight, keyRight, keyRight)
	require.Equal(t, "xep", env.session.Line())
	require.Equal(t, 3, env.session.line.Cursor())
}

func TestEditorScreenCompletion(t *testing.T) {
	env, sc := newScreenEnv(t)
	typeKeys(t, env, sc, "s", "t", "a", "t", keyLeft, keyLeft, "\t")
	require.Equal(t, "status", env.session.Line())

	typeKeys(t, env, sc, keyBack, keyBack, keyBack, keyBack, keyBack, "l", "\t")
	require.Equal(t, "sl", env.session.Line())
	typeKeys(t, env, sc, keyLeft, keyBack, "\t")
	require.Equal(t, "l", env.session.Line())
}

func TestEditorScreenHistory(t *testing.T) {
	env, sc := newScreenEnv(t)
	typeKeys(t, env, sc, "w", "h", "o", "a", "m", "i", "\r", "u", "p", "\r", "x")
	typeKeys(t, env, sc, keyUp)
	require.Equal(t, "up", env.session.Line())
	typeKeys(t, env, sc, keyUp)
	require.Equal(t, "whoami", env.session.Line())
	typeKeys(t, env, sc, keyDown, keyDown)
	require.Equal(t, "x", env.session.Line())

	// editing a recalled entry makes it the live line
	typeKeys(t, env, sc, keyUp, keyUp, keyLeft, keyLeft, "!", keyUp, keyDown, keyDown)
	require.Equal(t, "whoa!mi", env.session.Line())
}

func TestEditorScreenBufferFull(t *testing.T) {
	env, sc := newScreenEnv(t)
	for n := 0; n < MaxLineLength; n++ {
		typeKeys(t, env, sc, "a")
	}
	typeKeys(t, env, sc, "b", keyLeft, keyLeft, "c", keyBack, "d", keyRight, "e")
	require.Equal(t, strings.Repeat("a", MaxLineLength-3)+"daa", env.session.Line())
}

func TestEditorScreenRandomKeys(t *testing.T) {
	env, sc := newScreenEnv(t)
	keys := []string{"a", "l", "e", " ", keyBack, keyLeft, keyRight, keyUp, keyDown, "\t"}
	rnd := rand.New(rand.NewSource(7))
	for n := 0; n < 20000; n++ {
		typeKeys(t, env, sc, keys[rnd.Intn(len(keys))])
		if n%500 == 499 {
			// populate the history now and then
			typeKeys(t, env, sc, "\r")
		}
	}
}
