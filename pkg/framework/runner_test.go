package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunnerFirstStopCancelsOthers(t *testing.T) {
	failure := errors.New("link closed")
	r := NewRunner()
	r.Go(
		NamedRun("waiter", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(ctx context.Context) error { return failure }),
	)
	err := r.Wait()
	require.Equal(t, failure, err.(*AggregatedError).Errors[0])
	require.Equal(t, "link closed", err.Error())
}

func TestRunnerCleanStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, context.Canceled).Aggregate())
	errs.Add(errors.New("a"), errors.New("b"))
	require.Equal(t, "2 runners failed:\n  a\n  b", errs.Aggregate().Error())
}

type fakeCloser struct {
	closed chan struct{}
}

func (c *fakeCloser) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &fakeCloser{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.closed
		return errors.New("read on closed link")
	})
	require.Equal(t, context.Canceled, err)

	c = &fakeCloser{closed: make(chan struct{})}
	require.NoError(t, RunWithContextCloser(context.Background(), c, func() error { return nil }))
	<-c.closed
}
