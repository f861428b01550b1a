package serial

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/guard"
)

// Output is the transmit side of a link, shared under the serial guard.
type Output struct {
	w    io.Writer
	lock *guard.Lock
}

// NewOutput creates an Output.
func NewOutput(w io.Writer, lock *guard.Lock) *Output {
	return &Output{w: w, lock: lock}
}

// Send writes p while holding the serial guard. When the guard is busy past
// its bound the output is dropped.
func (o *Output) Send(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := o.lock.Acquire(ctx); err != nil {
		glog.V(2).Infof("serial: %d bytes output dropped: %v", len(p), err)
		return err
	}
	defer o.lock.Release()
	_, err := o.w.Write(p)
	return err
}

// Write implements io.Writer.
func (o *Output) Write(p []byte) (int, error) {
	if err := o.Send(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}
