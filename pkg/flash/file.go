package flash

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// File is a Device backed by an image file on the host.
type File struct {
	geo  Geometry
	f    *os.File
	lock sync.Mutex
}

// OpenFile opens or creates an image file. A new or short image is extended
// with erased bytes to the full geometry.
func OpenFile(path string, geo Geometry) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if size := info.Size(); size < int64(geo.Size()) {
		pad := make([]byte, int64(geo.Size())-size)
		for n := range pad {
			pad[n] = 0xFF
		}
		if _, err := f.WriteAt(pad, size); err != nil {
			f.Close()
			return nil, fmt.Errorf("extend image %s: %w", path, err)
		}
	}
	return &File{geo: geo, f: f}, nil
}

// Geometry implements Device.
func (d *File) Geometry() Geometry {
	return d.geo
}

// Read implements Device.
func (d *File) Read(addr uint32, p []byte) error {
	if err := d.geo.checkRange(addr, len(p)); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	_, err := d.f.ReadAt(p, int64(addr))
	if err == io.EOF {
		err = nil
	}
	return err
}

// ProgramWord implements Device.
func (d *File) ProgramWord(addr, word uint32) error {
	if addr%WordSize != 0 {
		return ErrUnaligned
	}
	if err := d.geo.checkRange(addr, WordSize); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	var b [WordSize]byte
	if _, err := d.f.ReadAt(b[:], int64(addr)); err != nil {
		return err
	}
	for n := range b {
		b[n] &= byte(word >> (8 * uint(n)))
	}
	_, err := d.f.WriteAt(b[:], int64(addr))
	return err
}

// EraseSector implements Device.
func (d *File) EraseSector(id int) error {
	if err := d.geo.checkSector(id); err != nil {
		return err
	}
	buf := make([]byte, d.geo.SectorSize)
	for n := range buf {
		buf[n] = 0xFF
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, err := d.f.WriteAt(buf, int64(d.geo.SectorBase(id))); err != nil {
		return err
	}
	return d.f.Sync()
}

// Close closes the image.
func (d *File) Close() error {
	return d.f.Close()
}
