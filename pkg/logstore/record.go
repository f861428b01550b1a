package logstore

import (
	"encoding/binary"
)

// On-media constants.
const (
	RecordMagic uint32 = 0xDEADBEEF
	HeaderMagic uint32 = 0xCAFEBABE

	ModuleSize  = 16
	MessageSize = 64
	HeaderSize  = 4
	RecordSize  = 4 + 4 + 4 + ModuleSize + MessageSize + 4

	offTimestamp = 4
	offLevel     = 8
	offModule    = 12
	offMessage   = offModule + ModuleSize
	offChecksum  = offMessage + MessageSize
)

// Level is the severity of a record. The ordinal is the on-media encoding.
type Level uint32

// Levels.
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
	LevelWarning
	LevelLogin
	LevelSensor
	LevelDebug
)

var levelNames = [...]string{
	LevelInfo:    "INFO",
	LevelSuccess: "SUCCESS",
	LevelError:   "ERROR",
	LevelWarning: "WARNING",
	LevelLogin:   "LOGIN",
	LevelSensor:  "SENSOR",
	LevelDebug:   "DEBUG",
}

// String implements fmt.Stringer.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// Record is a decoded log slot.
type Record struct {
	Slot      int
	Timestamp uint32
	Level     Level
	Module    string
	Message   string
}

// Checksum is the 8-bit XOR of p, widened to the stored container.
func Checksum(p []byte) uint32 {
	var sum byte
	for _, b := range p {
		sum ^= b
	}
	return uint32(sum)
}

// Encode renders the record in its slot layout. Module and Message are
// truncated to leave room for the terminator.
func (r *Record) Encode() (b [RecordSize]byte) {
	binary.LittleEndian.PutUint32(b[0:], RecordMagic)
	binary.LittleEndian.PutUint32(b[offTimestamp:], r.Timestamp)
	binary.LittleEndian.PutUint32(b[offLevel:], uint32(r.Level))
	putField(b[offModule:offModule+ModuleSize], r.Module)
	putField(b[offMessage:offMessage+MessageSize], r.Message)
	binary.LittleEndian.PutUint32(b[offChecksum:], Checksum(b[:offChecksum]))
	return
}

// DecodeRecord parses a slot. ok is false unless both the magic and the
// checksum are valid.
func DecodeRecord(b []byte) (r Record, ok bool) {
	if len(b) < RecordSize || binary.LittleEndian.Uint32(b) != RecordMagic {
		return
	}
	if binary.LittleEndian.Uint32(b[offChecksum:]) != Checksum(b[:offChecksum]) {
		return
	}
	r.Timestamp = binary.LittleEndian.Uint32(b[offTimestamp:])
	r.Level = Level(binary.LittleEndian.Uint32(b[offLevel:]))
	r.Module = getField(b[offModule : offModule+ModuleSize])
	r.Message = getField(b[offMessage : offMessage+MessageSize])
	return r, true
}

// Truncate cuts s so it fits a field of size bytes with its terminator.
func Truncate(s string, size int) string {
	if len(s) >= size {
		return s[:size-1]
	}
	return s
}

func putField(dst []byte, s string) {
	copy(dst, Truncate(s, len(dst)))
}

func getField(b []byte) string {
	for n, c := range b {
		if c == 0 {
			return string(b[:n])
		}
	}
	return string(b)
}
