// Package flash abstracts the raw non-volatile block memory of the node:
// word programming that can only clear bits, and whole-sector erase back to
// all ones.
package flash

import (
	"errors"
	"fmt"
)

// ErasedWord is what a word reads back as immediately after erase.
const ErasedWord uint32 = 0xFFFFFFFF

// WordSize is the programming unit in bytes.
const WordSize = 4

var (
	// ErrOutOfRange indicates an access beyond the device.
	ErrOutOfRange = errors.New("address out of range")
	// ErrUnaligned indicates a program address not aligned to WordSize.
	ErrUnaligned = errors.New("unaligned address")
)

// Geometry describes the layout of a device.
type Geometry struct {
	SectorSize uint32
	Sectors    int
}

// Size returns the total bytes of the device.
func (g Geometry) Size() uint32 {
	return g.SectorSize * uint32(g.Sectors)
}

// SectorBase returns the address of the first byte of sector id.
func (g Geometry) SectorBase(id int) uint32 {
	return g.SectorSize * uint32(id)
}

func (g Geometry) checkRange(addr uint32, n int) error {
	if n < 0 || uint64(addr)+uint64(n) > uint64(g.Size()) {
		return fmt.Errorf("%w: 0x%08x+%d", ErrOutOfRange, addr, n)
	}
	return nil
}

func (g Geometry) checkSector(id int) error {
	if id < 0 || id >= g.Sectors {
		return fmt.Errorf("%w: sector %d", ErrOutOfRange, id)
	}
	return nil
}

// Device is the block storage capability.
type Device interface {
	// Read fills p from addr.
	Read(addr uint32, p []byte) error
	// ProgramWord writes a little-endian word at a word-aligned addr. Bits
	// can only be cleared: the stored value becomes old & word.
	ProgramWord(addr, word uint32) error
	// EraseSector sets every byte of the sector to 0xFF. It blocks for the
	// erase latency of the medium.
	EraseSector(id int) error
	// Geometry returns the device layout.
	Geometry() Geometry
}

// ProgramBytes programs p word by word from addr. len(p) must be a multiple
// of WordSize.
func ProgramBytes(dev Device, addr uint32, p []byte) error {
	if len(p)%WordSize != 0 {
		return fmt.Errorf("%w: length %d", ErrUnaligned, len(p))
	}
	for off := 0; off < len(p); off += WordSize {
		word := uint32(p[off]) | uint32(p[off+1])<<8 | uint32(p[off+2])<<16 | uint32(p[off+3])<<24
		if err := dev.ProgramWord(addr+uint32(off), word); err != nil {
			return err
		}
	}
	return nil
}

// ReadWord reads a little-endian word.
func ReadWord(dev Device, addr uint32) (uint32, error) {
	var b [WordSize]byte
	if err := dev.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}
