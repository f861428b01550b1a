//go:build unix

package serial

import (
	"os"

	"golang.org/x/sys/unix"
)

// pollable returns a non-blocking duplicate of f, which the runtime poller
// can interrupt on Close. reset puts f back into blocking mode, as the
// duplicate shares its file status flags.
func pollable(f *os.File) (*os.File, func(), error) {
	orig := int(f.Fd())
	fd, err := unix.Dup(orig)
	if err != nil {
		return nil, nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, nil, err
	}
	reset := func() { unix.SetNonblock(orig, false) }
	return os.NewFile(uintptr(fd), f.Name()), reset, nil
}
