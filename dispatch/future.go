package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Future is the asynchronous counterpart to Invoke. Get blocks until the
// owner loop publishes an outcome, honoring the dispatcher's wait bound.
// Get may be called more than once; it returns the same outcome each time.
type Future interface {
	Get() (any, error)
}

type completedFuture struct {
	result any
	err    error
}

func (f completedFuture) Get() (any, error) {
	return f.result, f.err
}

type pendingFuture struct {
	d   *Dispatcher
	ctx context.Context
	inv *invocation
}

func (f *pendingFuture) Get() (any, error) {
	var expired <-chan time.Time
	if f.d.timeout > 0 {
		timer := time.NewTimer(f.d.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-f.inv.done:
		return f.inv.result, f.inv.err
	case <-expired:
		f.d.metrics.timedOut()
		return nil, fmt.Errorf("%w after %s", ErrDispatchTimeout, f.d.timeout)
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}
