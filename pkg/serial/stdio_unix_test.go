//go:build unix

package serial

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

func nonblocking(t *testing.T, fd int) bool {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	require.NoError(t, err)
	return flags&unix.O_NONBLOCK != 0
}

func TestStdioCloseReleasesRead(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	defer r.Close()
	// Fd switches the pipe to blocking mode, like a terminal stdin.
	fd := int(r.Fd())
	require.False(t, nonblocking(t, fd))

	link, err := newStdio(r, w)
	require.NoError(t, err)
	require.Nil(t, link.state)
	_, err = w.Write([]byte("hi"))
	require.NoError(t, err)

	pump := NewPump(link)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump.Run(ctx) }()
	<-pump.Ready()
	cancel()
	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("pump still blocked in Read after cancel")
	}
	require.False(t, nonblocking(t, fd))
	b, ok := pump.Pop()
	require.True(t, ok)
	require.Equal(t, byte('h'), b)
}
