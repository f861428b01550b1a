package serial

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/websocket"

	"github.com/robotalks/nodeterm/pkg/guard"
)

func TestRingFull(t *testing.T) {
	var r Ring
	for n := 0; n < RingSize; n++ {
		require.True(t, r.Push(byte(n)))
	}
	require.False(t, r.Push(0xff))
	require.Equal(t, uint64(1), r.Overruns())
	require.Equal(t, RingSize, r.Len())
	for n := 0; n < RingSize; n++ {
		b, ok := r.Pop()
		require.True(t, ok)
		require.Equal(t, byte(n), b)
	}
	_, ok := r.Pop()
	require.False(t, ok)
}

func TestRingConcurrent(t *testing.T) {
	var r Ring
	const total = 10000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < total; {
			if r.Push(byte(n)) {
				n++
			}
		}
	}()
	for n := 0; n < total; {
		b, ok := r.Pop()
		if !ok {
			continue
		}
		require.Equal(t, byte(n), b)
		n++
	}
	wg.Wait()
	require.Zero(t, r.Len())
}

func TestPump(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	pr, pw := io.Pipe()
	pump := NewPump(pr)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- pump.Run(ctx) }()

	go pw.Write([]byte("login\r"))
	var got []byte
	for len(got) < 6 {
		<-pump.Ready()
		for {
			b, ok := pump.Pop()
			if !ok {
				break
			}
			got = append(got, b)
		}
	}
	require.Equal(t, "login\r", string(got))

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	<-pump.Done()
}

func TestPumpSourceClosed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	pump := NewPump(io.NopCloser(bytes.NewReader([]byte("x"))))
	require.Equal(t, io.EOF, pump.Run(context.Background()))
	b, ok := pump.Pop()
	require.True(t, ok)
	require.Equal(t, byte('x'), b)
}

func TestOutputDropsOnTimeout(t *testing.T) {
	lock, err := guard.New("serial", 10*time.Millisecond)
	require.NoError(t, err)
	var buf bytes.Buffer
	out := NewOutput(&buf, lock)
	ctx := context.Background()
	require.NoError(t, out.Send(ctx, []byte("ok ")))

	require.NoError(t, lock.Acquire(ctx))
	require.Equal(t, guard.ErrTimeout, out.Send(ctx, []byte("dropped")))
	lock.Release()

	n, err := out.Write([]byte("again"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "ok again", buf.String())
}

func TestWebsocketLink(t *testing.T) {
	l := NewWebsocketListener("127.0.0.1:0", "/term")
	require.NoError(t, l.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	url := "ws://" + l.ListenAddr().String() + "/term"
	client, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	defer client.Close()

	link, err := l.Accept(ctx)
	require.NoError(t, err)
	_, err = client.Write([]byte("help\r"))
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := io.ReadAtLeast(link, buf, 5)
	require.NoError(t, err)
	require.Equal(t, "help\r", string(buf[:n]))

	_, err = link.Write([]byte("login: "))
	require.NoError(t, err)
	n, err = io.ReadAtLeast(client, buf, 7)
	require.NoError(t, err)
	require.Equal(t, "login: ", string(buf[:n]))
	require.Contains(t, link.Name(), "ws:")
	require.NoError(t, link.Close())
}
