// Package logstore is the persistent log of the node: checksum-validated
// records in fixed slots of one flash sector, scanned for the first erased
// slot on every write and erased as a whole when full.
package logstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/flash"
	"github.com/robotalks/nodeterm/pkg/framework"
	"github.com/robotalks/nodeterm/pkg/guard"
)

var (
	// ErrFull indicates no slot was free even after erasing.
	ErrFull = errors.New("log store full")
)

// Config defines the placement and timing of the store.
type Config struct {
	Sector       int
	Slots        int
	EraseTimeout time.Duration
}

// DefaultConfig is the sizing used on the node.
var DefaultConfig = Config{
	Sector:       0,
	Slots:        50,
	EraseTimeout: 500 * time.Millisecond,
}

// Notifier is told about every committed record.
type Notifier interface {
	RecordAdded(Record)
}

// NotifyFunc is the func form of Notifier.
type NotifyFunc func(Record)

// RecordAdded implements Notifier.
func (f NotifyFunc) RecordAdded(r Record) {
	f(r)
}

// Store is the log region on a flash device.
type Store struct {
	dev          flash.Device
	lock         *guard.Lock
	clock        framework.Clock
	base         uint32
	sector       int
	slots        int
	eraseTimeout time.Duration

	notifiers []Notifier
	nlock     sync.RWMutex
}

// New creates a Store. lock is the storage guard shared with other writers
// of the device.
func New(dev flash.Device, lock *guard.Lock, clock framework.Clock, conf Config) (*Store, error) {
	geo := dev.Geometry()
	if conf.Sector < 0 || conf.Sector >= geo.Sectors {
		return nil, fmt.Errorf("log sector %d: %w", conf.Sector, flash.ErrOutOfRange)
	}
	if conf.Slots <= 0 || HeaderSize+conf.Slots*RecordSize > int(geo.SectorSize) {
		return nil, fmt.Errorf("%d log slots do not fit a %d bytes sector", conf.Slots, geo.SectorSize)
	}
	if conf.EraseTimeout <= 0 {
		conf.EraseTimeout = DefaultConfig.EraseTimeout
	}
	return &Store{
		dev:          dev,
		lock:         lock,
		clock:        clock,
		base:         geo.SectorBase(conf.Sector),
		sector:       conf.Sector,
		slots:        conf.Slots,
		eraseTimeout: conf.EraseTimeout,
	}, nil
}

// Capacity returns the number of slots.
func (s *Store) Capacity() int {
	return s.slots
}

// AddNotifier registers a Notifier.
func (s *Store) AddNotifier(n Notifier) {
	s.nlock.Lock()
	s.notifiers = append(s.notifiers, n)
	s.nlock.Unlock()
}

func (s *Store) slotAddr(slot int) uint32 {
	return s.base + HeaderSize + uint32(slot*RecordSize)
}

// Initialized reports whether the header magic is present.
func (s *Store) Initialized() (bool, error) {
	magic, err := flash.ReadWord(s.dev, s.base)
	if err != nil {
		return false, err
	}
	return magic == HeaderMagic, nil
}

// Init erases the region unless it carries a valid header.
func (s *Store) Init(ctx context.Context) error {
	ok, err := s.Initialized()
	if err != nil {
		return err
	}
	if ok {
		glog.Infof("logstore: %d records found", s.Count())
		return nil
	}
	glog.Info("logstore: no valid header, formatting")
	return s.EraseAll(ctx)
}

// EraseAll destroys all records and writes a fresh header.
func (s *Store) EraseAll(ctx context.Context) error {
	if err := s.lock.AcquireWithin(ctx, s.eraseTimeout); err != nil {
		return err
	}
	defer s.lock.Release()
	if err := s.dev.EraseSector(s.sector); err != nil {
		return err
	}
	return s.dev.ProgramWord(s.base, HeaderMagic)
}

// Add appends a record stamped with the current uptime. When the guard is
// not acquired in time the record is dropped and guard.ErrTimeout returned.
func (s *Store) Add(ctx context.Context, level Level, module, message string) error {
	rec, err := s.add(ctx, level, module, message)
	if err != nil {
		glog.Warningf("logstore: record %s/%s dropped: %v", level, module, err)
		return err
	}
	s.nlock.RLock()
	notifiers := s.notifiers
	s.nlock.RUnlock()
	for _, n := range notifiers {
		n.RecordAdded(rec)
	}
	return nil
}

func (s *Store) add(ctx context.Context, level Level, module, message string) (Record, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return Record{}, err
	}
	slot, err := s.findEmpty()
	if err == nil && slot < 0 {
		s.lock.Release()
		glog.Infof("logstore: all %d slots used, erasing", s.slots)
		if err = s.EraseAll(ctx); err != nil {
			return Record{}, err
		}
		if err = s.lock.Acquire(ctx); err != nil {
			return Record{}, err
		}
		// another writer may have taken slot 0 in between
		if slot, err = s.findEmpty(); err == nil && slot < 0 {
			err = ErrFull
		}
	}
	defer s.lock.Release()
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Slot:      slot,
		Timestamp: framework.Millis(s.clock),
		Level:     level,
		Module:    Truncate(module, ModuleSize),
		Message:   Truncate(message, MessageSize),
	}
	buf := rec.Encode()
	if err := flash.ProgramBytes(s.dev, s.slotAddr(slot), buf[:]); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) findEmpty() (int, error) {
	for slot := 0; slot < s.slots; slot++ {
		magic, err := flash.ReadWord(s.dev, s.slotAddr(slot))
		if err != nil {
			return -1, err
		}
		if magic == flash.ErasedWord {
			return slot, nil
		}
	}
	return -1, nil
}

// Scan calls fn for every valid record in slot order until fn returns
// false. It does not take the guard; a record being written concurrently
// may be missed.
func (s *Store) Scan(fn func(Record) bool) {
	var buf [RecordSize]byte
	for slot := 0; slot < s.slots; slot++ {
		if err := s.dev.Read(s.slotAddr(slot), buf[:]); err != nil {
			glog.Errorf("logstore: read slot %d: %v", slot, err)
			return
		}
		rec, ok := DecodeRecord(buf[:])
		if !ok {
			continue
		}
		rec.Slot = slot
		if !fn(rec) {
			return
		}
	}
}

// Count returns the number of valid records.
func (s *Store) Count() (count int) {
	s.Scan(func(Record) bool {
		count++
		return true
	})
	return
}

// Records returns all valid records in slot order.
func (s *Store) Records() (records []Record) {
	s.Scan(func(r Record) bool {
		records = append(records, r)
		return true
	})
	return
}

// Pages returns ceil(Count()/size).
func (s *Store) Pages(size int) int {
	return (s.Count() + size - 1) / size
}

// Page returns the valid records whose ordinal falls into page.
func (s *Store) Page(page, size int) (records []Record) {
	first, n := page*size, 0
	s.Scan(func(r Record) bool {
		if n >= first+size {
			return false
		}
		if n >= first {
			records = append(records, r)
		}
		n++
		return true
	})
	return
}
