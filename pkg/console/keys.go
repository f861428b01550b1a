package console

// KeyKind classifies a decoded key.
type KeyKind int

// Key kinds.
const (
	KeyNone KeyKind = iota
	KeyChar
	KeyEnter
	KeyBackspace
	KeyTab
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
)

// Key is a decoded keystroke.
type Key struct {
	Kind KeyKind
	Char byte
}

type decodeState int

const (
	decodeIdle decodeState = iota // plain bytes
	decodeEsc                     // ESC received
	decodeCSI                     // ESC [ received, until the final byte
)

const (
	keyESC = 0x1b
	keyDEL = 0x7f
	keyBS  = 0x08
)

// KeyDecoder turns received bytes into keys, one byte at a time.
type KeyDecoder struct {
	state  decodeState
	lastCR bool
}

// Reset drops any partial sequence.
func (d *KeyDecoder) Reset() {
	d.state, d.lastCR = decodeIdle, false
}

// Decode consumes one byte. Kind is KeyNone when the byte is part of a
// sequence or ignored.
func (d *KeyDecoder) Decode(b byte) (k Key) {
	lastCR := d.lastCR
	d.lastCR = false
	switch d.state {
	case decodeEsc:
		d.state = decodeIdle
		if b == '[' {
			d.state = decodeCSI
			return
		}
	case decodeCSI:
		switch {
		case b >= 0x20 && b <= 0x3f:
			// parameter and intermediate bytes, e.g. ESC [ 3 ~
			return
		case b >= 0x40 && b <= 0x7e:
			d.state = decodeIdle
			switch b {
			case 'A':
				k.Kind = KeyUp
			case 'B':
				k.Kind = KeyDown
			case 'C':
				k.Kind = KeyRight
			case 'D':
				k.Kind = KeyLeft
			}
			return
		}
		d.state = decodeIdle
	}
	switch {
	case b == keyESC:
		d.state = decodeEsc
	case b == '\r':
		d.lastCR = true
		k.Kind = KeyEnter
	case b == '\n':
		if !lastCR {
			k.Kind = KeyEnter
		}
	case b == keyDEL || b == keyBS:
		k.Kind = KeyBackspace
	case b == '\t':
		k.Kind = KeyTab
	case b >= 0x20 && b <= 0x7e:
		k.Kind, k.Char = KeyChar, b
	}
	return
}
