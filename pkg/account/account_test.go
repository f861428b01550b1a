package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nodeterm/pkg/flash"
	"github.com/robotalks/nodeterm/pkg/guard"
)

func newTestStore(t *testing.T, dev flash.Device) *Store {
	lock, err := guard.New("storage", 50*time.Millisecond)
	require.NoError(t, err)
	s, err := New(dev, lock, DefaultConfig)
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestFirstBootDefaults(t *testing.T) {
	dev := flash.NewMem(flash.Geometry{SectorSize: 1024, Sectors: 2})
	s := newTestStore(t, dev)
	require.True(t, s.UsingDefaults())
	require.Equal(t, "admin", s.Username())
	require.True(t, s.Validate("admin", "1234"))
	require.False(t, s.Validate("admin", "12345"))

	buf := make([]byte, CredentialSize)
	require.NoError(t, dev.Read(1024, buf))
	cred, ok := DecodeCredential(buf)
	require.True(t, ok)
	require.Equal(t, Defaults, cred)
}

func TestChangePersists(t *testing.T) {
	dev := flash.NewMem(flash.Geometry{SectorSize: 1024, Sectors: 2})
	s := newTestStore(t, dev)
	ctx := context.Background()
	require.NoError(t, s.Change(ctx, "operator_1", "s3cret"))
	require.False(t, s.UsingDefaults())
	require.True(t, s.Validate("operator_1", "s3cret"))
	require.False(t, s.Validate("admin", "1234"))

	s = newTestStore(t, dev)
	require.True(t, s.Validate("operator_1", "s3cret"))
	require.True(t, s.CheckPassword("s3cret"))

	require.NoError(t, s.Reset(ctx))
	require.True(t, s.Validate("admin", "1234"))
}

func TestChangeRejected(t *testing.T) {
	dev := flash.NewMem(flash.Geometry{SectorSize: 1024, Sectors: 2})
	s := newTestStore(t, dev)
	ctx := context.Background()
	require.Equal(t, ErrInvalidUsername, s.Change(ctx, "ab", "1234"))
	require.Equal(t, ErrInvalidPassword, s.Change(ctx, "abc", "123"))
	require.True(t, s.UsingDefaults())
}

func TestCorruptSlotRewritten(t *testing.T) {
	dev := flash.NewMem(flash.Geometry{SectorSize: 1024, Sectors: 2})
	buf := Credential{Username: "bob", Password: "hunter2"}.Encode()
	buf[offUsername] = 'c'
	require.NoError(t, flash.ProgramBytes(dev, 1024, buf[:]))
	s := newTestStore(t, dev)
	require.True(t, s.UsingDefaults())
}

func TestValidation(t *testing.T) {
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"abc", true},
		{"user-name_09", true},
		{"ABCDEFGHIJKLMNO", true},
		{"ab", false},
		{"ABCDEFGHIJKLMNOP", false},
		{"bad name", false},
		{"bad.name", false},
	} {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.ok, ValidUsername(c.name) == nil)
		})
	}
	require.NoError(t, ValidPassword("1234"))
	require.NoError(t, ValidPassword("with spaces ok"))
	require.Error(t, ValidPassword("123"))
	require.Error(t, ValidPassword("0123456789abcdef"))
}
