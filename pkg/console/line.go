package console

// MaxLineLength is the capacity of the command line.
const MaxLineLength = 32

// LineBuffer is the command line being edited. 0 <= cursor <= length <=
// MaxLineLength always holds.
type LineBuffer struct {
	buf    [MaxLineLength]byte
	length int
	cursor int
}

// Len returns the length of the content.
func (l *LineBuffer) Len() int { return l.length }

// Cursor returns the cursor position.
func (l *LineBuffer) Cursor() int { return l.cursor }

// Full tells whether no more byte can be added.
func (l *LineBuffer) Full() bool { return l.length >= MaxLineLength }

// String returns the content.
func (l *LineBuffer) String() string { return string(l.buf[:l.length]) }

// Suffix returns the content from the cursor.
func (l *LineBuffer) Suffix() []byte { return l.buf[l.cursor:l.length] }

// Insert puts c at the cursor, shifting the suffix right.
func (l *LineBuffer) Insert(c byte) bool {
	if l.Full() {
		return false
	}
	copy(l.buf[l.cursor+1:l.length+1], l.buf[l.cursor:l.length])
	l.buf[l.cursor] = c
	l.cursor++
	l.length++
	return true
}

// Append adds c at the end and moves the cursor there.
func (l *LineBuffer) Append(c byte) bool {
	if l.Full() {
		return false
	}
	l.buf[l.length] = c
	l.length++
	l.cursor = l.length
	return true
}

// Delete removes the byte left of the cursor.
func (l *LineBuffer) Delete() bool {
	if l.cursor == 0 {
		return false
	}
	copy(l.buf[l.cursor-1:], l.buf[l.cursor:l.length])
	l.cursor--
	l.length--
	return true
}

// MoveLeft moves the cursor one byte left.
func (l *LineBuffer) MoveLeft() bool {
	if l.cursor == 0 {
		return false
	}
	l.cursor--
	return true
}

// MoveRight moves the cursor one byte right.
func (l *LineBuffer) MoveRight() bool {
	if l.cursor >= l.length {
		return false
	}
	l.cursor++
	return true
}

// MoveEnd moves the cursor past the last byte.
func (l *LineBuffer) MoveEnd() {
	l.cursor = l.length
}

// Set replaces the content, truncated to capacity, with the cursor at end.
func (l *LineBuffer) Set(s string) {
	l.length = copy(l.buf[:], s)
	l.cursor = l.length
}

// Reset empties the buffer.
func (l *LineBuffer) Reset() {
	l.length, l.cursor = 0, 0
}
