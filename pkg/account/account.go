// Package account keeps the single console credential in its own flash
// sector.
package account

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/flash"
	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

// On-media constants.
const (
	CredentialMagic uint32 = 0xC0FABCD0
	FieldSize              = 16
	CredentialSize         = 4 + FieldSize + FieldSize + 4

	offUsername = 4
	offPassword = offUsername + FieldSize
	offChecksum = offPassword + FieldSize
)

// Length limits of a credential.
const (
	MinUsername = 3
	MinPassword = 4
	MaxLength   = FieldSize - 1
)

var (
	// ErrInvalidUsername rejects a username.
	ErrInvalidUsername = errors.New("username must be 3-15 characters of letters, digits, _ or -")
	// ErrInvalidPassword rejects a password.
	ErrInvalidPassword = errors.New("password must be 4-15 characters")
)

// Credential is a username and password pair.
type Credential struct {
	Username string
	Password string
}

// Defaults is the credential created at first boot.
var Defaults = Credential{Username: "admin", Password: "1234"}

// Encode renders the credential slot.
func (c Credential) Encode() (b [CredentialSize]byte) {
	binary.LittleEndian.PutUint32(b[0:], CredentialMagic)
	copy(b[offUsername:offPassword], logstore.Truncate(c.Username, FieldSize))
	copy(b[offPassword:offChecksum], logstore.Truncate(c.Password, FieldSize))
	binary.LittleEndian.PutUint32(b[offChecksum:], logstore.Checksum(b[:offChecksum]))
	return
}

// DecodeCredential parses a slot; ok is false if magic or checksum is bad.
func DecodeCredential(b []byte) (c Credential, ok bool) {
	if len(b) < CredentialSize || binary.LittleEndian.Uint32(b) != CredentialMagic {
		return
	}
	if binary.LittleEndian.Uint32(b[offChecksum:]) != logstore.Checksum(b[:offChecksum]) {
		return
	}
	return Credential{
		Username: cstring(b[offUsername:offPassword]),
		Password: cstring(b[offPassword:offChecksum]),
	}, true
}

func cstring(b []byte) string {
	for n, c := range b {
		if c == 0 {
			return string(b[:n])
		}
	}
	return string(b)
}

// ValidUsername checks a candidate username.
func ValidUsername(name string) error {
	if len(name) < MinUsername || len(name) > MaxLength {
		return ErrInvalidUsername
	}
	for _, c := range []byte(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// ValidPassword checks a candidate password.
func ValidPassword(password string) error {
	if len(password) < MinPassword || len(password) > MaxLength {
		return ErrInvalidPassword
	}
	return nil
}

// Config places the credential.
type Config struct {
	Sector       int
	EraseTimeout time.Duration
}

// DefaultConfig is the placement used on the node.
var DefaultConfig = Config{Sector: 1, EraseTimeout: 500 * time.Millisecond}

// Store is the credential slot with an in-memory copy.
type Store struct {
	dev          flash.Device
	lock         *guard.Lock
	sector       int
	base         uint32
	eraseTimeout time.Duration

	cred     Credential
	defaults bool
	mu       sync.RWMutex
}

// New creates a Store. The credential is not read until Load.
func New(dev flash.Device, lock *guard.Lock, conf Config) (*Store, error) {
	geo := dev.Geometry()
	if conf.Sector < 0 || conf.Sector >= geo.Sectors {
		return nil, fmt.Errorf("credential sector %d: %w", conf.Sector, flash.ErrOutOfRange)
	}
	if conf.EraseTimeout <= 0 {
		conf.EraseTimeout = DefaultConfig.EraseTimeout
	}
	return &Store{
		dev:          dev,
		lock:         lock,
		sector:       conf.Sector,
		base:         geo.SectorBase(conf.Sector),
		eraseTimeout: conf.EraseTimeout,
		cred:         Defaults,
		defaults:     true,
	}, nil
}

// Load reads the stored credential, writing the defaults when the slot is
// not valid.
func (s *Store) Load(ctx context.Context) error {
	var buf [CredentialSize]byte
	if err := s.dev.Read(s.base, buf[:]); err != nil {
		return err
	}
	if cred, ok := DecodeCredential(buf[:]); ok {
		s.set(cred)
		return nil
	}
	glog.Info("account: no valid credential, writing defaults")
	return s.write(ctx, Defaults)
}

func (s *Store) set(cred Credential) {
	s.mu.Lock()
	s.cred = cred
	s.defaults = cred == Defaults
	s.mu.Unlock()
}

func (s *Store) write(ctx context.Context, cred Credential) error {
	if err := s.lock.AcquireWithin(ctx, s.eraseTimeout); err != nil {
		return err
	}
	defer s.lock.Release()
	if err := s.dev.EraseSector(s.sector); err != nil {
		return err
	}
	buf := cred.Encode()
	if err := flash.ProgramBytes(s.dev, s.base, buf[:]); err != nil {
		return err
	}
	s.set(cred)
	return nil
}

// Username returns the stored username.
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Username
}

// UsingDefaults tells whether the factory credential is in use.
func (s *Store) UsingDefaults() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// Validate checks a full credential.
func (s *Store) Validate(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return username == s.cred.Username && password == s.cred.Password
}

// CheckPassword checks the password of the stored user.
func (s *Store) CheckPassword(password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return password == s.cred.Password
}

// Change replaces the credential.
func (s *Store) Change(ctx context.Context, username, password string) error {
	if err := ValidUsername(username); err != nil {
		return err
	}
	if err := ValidPassword(password); err != nil {
		return err
	}
	return s.write(ctx, Credential{Username: username, Password: password})
}

// Reset restores the defaults.
func (s *Store) Reset(ctx context.Context) error {
	return s.write(ctx, Defaults)
}
