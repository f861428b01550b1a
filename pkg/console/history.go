package console

// HistorySize is the number of commands remembered.
const HistorySize = 5

type historyEntry struct {
	buf [MaxLineLength]byte
	n   int
}

func (e *historyEntry) String() string { return string(e.buf[:e.n]) }

// History is the ring of submitted commands with navigation. pos is -1
// while editing live, otherwise the age of the shown entry (0 is newest).
type History struct {
	entries [HistorySize]historyEntry
	next    int
	count   int
	pos     int
	saved   historyEntry
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{pos: -1}
}

// Len returns the number of entries.
func (h *History) Len() int { return h.count }

func (h *History) at(age int) *historyEntry {
	return &h.entries[(h.next-1-age+2*HistorySize)%HistorySize]
}

// Push adds cmd unless it equals the newest entry. The oldest is evicted
// when full.
func (h *History) Push(cmd string) {
	if h.count > 0 && h.at(0).String() == cmd {
		return
	}
	e := &h.entries[h.next]
	e.n = copy(e.buf[:], cmd)
	h.next = (h.next + 1) % HistorySize
	if h.count < HistorySize {
		h.count++
	}
}

// Entries returns the entries from oldest to newest.
func (h *History) Entries() []string {
	entries := make([]string, 0, h.count)
	for age := h.count - 1; age >= 0; age-- {
		entries = append(entries, h.at(age).String())
	}
	return entries
}

// Navigating tells whether an entry is shown instead of the live line.
func (h *History) Navigating() bool { return h.pos >= 0 }

// Older steps to an earlier entry, saving live on the first step. It
// returns false when there is no history.
func (h *History) Older(live string) (string, bool) {
	if h.count == 0 {
		return "", false
	}
	if h.pos < 0 {
		h.saved.n = copy(h.saved.buf[:], live)
		h.pos = 0
	} else if h.pos < h.count-1 {
		h.pos++
	}
	return h.at(h.pos).String(), true
}

// Newer steps to a later entry. Past the newest it returns the saved live
// line and stops navigating. It returns false when not navigating.
func (h *History) Newer() (string, bool) {
	if h.pos < 0 {
		return "", false
	}
	if h.pos == 0 {
		h.pos = -1
		return h.saved.String(), true
	}
	h.pos--
	return h.at(h.pos).String(), true
}

// Detach stops navigating and keeps whatever is on the line.
func (h *History) Detach() {
	h.pos = -1
}
