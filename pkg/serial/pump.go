package serial

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/framework"
)

// Pump is the receive side of a link: a goroutine reading the link into a
// Ring and waking the consumer.
type Pump struct {
	ring  Ring
	src   io.ReadCloser
	ready chan struct{}
	done  chan struct{}
}

// NewPump creates a Pump reading src.
func NewPump(src io.ReadCloser) *Pump {
	return &Pump{
		src:   src,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Ready is signaled after bytes are queued.
func (p *Pump) Ready() <-chan struct{} {
	return p.ready
}

// Done is closed when the pump stopped.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// Pop removes the oldest received byte.
func (p *Pump) Pop() (byte, bool) {
	return p.ring.Pop()
}

// Overruns returns the count of dropped bytes.
func (p *Pump) Overruns() uint64 {
	return p.ring.Overruns()
}

// Run implements Runnable. The source is closed when ctx is done.
func (p *Pump) Run(ctx context.Context) error {
	defer close(p.done)
	return framework.RunWithContextCloser(ctx, p.src, p.receive)
}

func (p *Pump) receive() error {
	var buf [16]byte
	for {
		n, err := p.src.Read(buf[:])
		for _, b := range buf[:n] {
			if !p.ring.Push(b) {
				glog.V(2).Infof("serial: overrun, byte 0x%02x dropped", b)
			}
		}
		if n > 0 {
			select {
			case p.ready <- struct{}{}:
			default:
			}
		}
		if err != nil {
			return err
		}
	}
}
