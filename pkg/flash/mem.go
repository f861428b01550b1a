package flash

import (
	"sync"
	"time"
)

// Mem is a byte-array Device. A fresh Mem reads as fully erased.
type Mem struct {
	// EraseLatency simulates the physical erase time.
	EraseLatency time.Duration
	// FailAfter, when positive, makes the device accept only that many more
	// word programs; later ones are silently lost, emulating a power cut.
	FailAfter int

	geo  Geometry
	data []byte
	lock sync.Mutex
}

// NewMem creates a Mem with the geometry.
func NewMem(geo Geometry) *Mem {
	m := &Mem{geo: geo, data: make([]byte, geo.Size())}
	for n := range m.data {
		m.data[n] = 0xFF
	}
	return m
}

// Geometry implements Device.
func (m *Mem) Geometry() Geometry {
	return m.geo
}

// Read implements Device.
func (m *Mem) Read(addr uint32, p []byte) error {
	if err := m.geo.checkRange(addr, len(p)); err != nil {
		return err
	}
	m.lock.Lock()
	copy(p, m.data[addr:])
	m.lock.Unlock()
	return nil
}

// ProgramWord implements Device.
func (m *Mem) ProgramWord(addr, word uint32) error {
	if addr%WordSize != 0 {
		return ErrUnaligned
	}
	if err := m.geo.checkRange(addr, WordSize); err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.FailAfter > 0 {
		m.FailAfter--
		if m.FailAfter == 0 {
			m.FailAfter = -1
		}
	} else if m.FailAfter < 0 {
		return nil
	}
	for n := uint32(0); n < WordSize; n++ {
		m.data[addr+n] &= byte(word >> (8 * n))
	}
	return nil
}

// EraseSector implements Device.
func (m *Mem) EraseSector(id int) error {
	if err := m.geo.checkSector(id); err != nil {
		return err
	}
	if m.EraseLatency > 0 {
		time.Sleep(m.EraseLatency)
	}
	m.lock.Lock()
	base := m.geo.SectorBase(id)
	for n := base; n < base+m.geo.SectorSize; n++ {
		m.data[n] = 0xFF
	}
	m.lock.Unlock()
	return nil
}

// Bytes returns a copy of the contents.
func (m *Mem) Bytes() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]byte(nil), m.data...)
}
