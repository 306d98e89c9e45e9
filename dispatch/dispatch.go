package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fogfish/opts"

	"github.com/skeinworks/skein/pkg/stdx"
	"github.com/skeinworks/skein/pkg/uuidx"
)

// Operation is a unit of owner-affine work. It receives the caller's context,
// re-tagged by the serve loop, and returns a result or an error. The error is
// handed back to the caller unchanged.
type Operation func(context.Context) (any, error)

// Owner identifies the goroutine permitted to execute owner-affine work.
// The handle is opaque and immutable; whoever holds it runs the loop.
type Owner struct {
	id string
}

// NewOwner mints a fresh owner handle.
func NewOwner() *Owner {
	return &Owner{id: uuidx.NewString()}
}

// ID returns the owner's identity, for logs.
func (o *Owner) ID() string { return o.id }

type invocation struct {
	ctx      context.Context
	op       Operation
	done     chan struct{}
	accepted time.Time
	result   any
	err      error
}

// Dispatcher funnels invocations from arbitrary goroutines onto the loop run
// by the claimed owner. Construct with New, claim with Claim (or implicitly
// via Serve), then call Invoke, Do or InvokeAsync from anywhere.
type Dispatcher struct {
	mu      sync.Mutex
	owner   *Owner
	queue   chan *invocation
	serving atomic.Bool

	timeout    time.Duration
	queueDepth int
	metrics    *metrics
}

// New creates an unclaimed dispatcher. Without WithTimeout callers wait
// indefinitely; without WithQueueDepth the queue holds 64 pending invocations.
func New(options ...opts.Option[Dispatcher]) *Dispatcher {
	d := &Dispatcher{queueDepth: 64}
	stdx.Must0(opts.Apply(d, options))
	d.queue = make(chan *invocation, d.queueDepth)
	return d
}

// Claim records o as the dispatcher's owner. The first claim wins; claiming
// again with the same handle is a no-op, with a different handle it fails
// with ErrOwnerConflict. Safe to call concurrently.
func (d *Dispatcher) Claim(o *Owner) error {
	if o == nil {
		return fmt.Errorf("%w: owner handle is nil", ErrNotOwner)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.owner {
	case nil:
		d.owner = o
		return nil
	case o:
		return nil
	default:
		return fmt.Errorf("%w: held by %s", ErrOwnerConflict, d.owner.id)
	}
}

// Serve runs the owner loop on the calling goroutine until ctx is cancelled.
// It claims o if the dispatcher is unclaimed and rejects handles that do not
// match an existing claim. Queued invocations execute strictly in the order
// they were accepted, one at a time. On shutdown, still-queued invocations
// fail with ErrNotServing.
func (d *Dispatcher) Serve(ctx context.Context, o *Owner) error {
	if err := d.Claim(o); err != nil {
		return err
	}
	d.mu.Lock()
	if d.owner != o {
		d.mu.Unlock()
		return ErrNotOwner
	}
	if !d.serving.CompareAndSwap(false, true) {
		d.mu.Unlock()
		return ErrAlreadyServing
	}
	d.mu.Unlock()
	defer d.serving.Store(false)

	for {
		select {
		case <-ctx.Done():
			// Flip serving under the lock before draining. A submit
			// racing with shutdown either observes the flip and fails
			// with ErrNotServing or has already enqueued and is failed
			// by the drain; no invocation can land after the drain.
			d.mu.Lock()
			d.serving.Store(false)
			d.mu.Unlock()
			d.failPending()
			return ctx.Err()
		case inv := <-d.queue:
			d.metrics.queueDepth(len(d.queue))
			d.execute(inv)
		}
	}
}

// Serving reports whether the owner loop is currently accepting work.
func (d *Dispatcher) Serving() bool {
	return d.serving.Load()
}

func (d *Dispatcher) execute(inv *invocation) {
	// The operation observes the caller's context values and cancellation,
	// plus the owner tag so nested invokes run inline.
	ctx := withOwner(inv.ctx, d)
	inv.result, inv.err = d.run(ctx, inv.op)
	d.metrics.observeLatency(time.Since(inv.accepted))
	close(inv.done)
}

func (d *Dispatcher) run(ctx context.Context, op Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// failPending drains the queue after the loop stops, completing every pending
// invocation with ErrNotServing so no caller is left waiting.
func (d *Dispatcher) failPending() {
	for {
		select {
		case inv := <-d.queue:
			inv.err = ErrNotServing
			close(inv.done)
		default:
			return
		}
	}
}

// Invoke runs op on the owner loop and blocks until the loop publishes the
// operation's result or error.
//
// When ctx already originates from this dispatcher's serve loop the operation
// executes synchronously in place, with no queueing, so reentrant calls
// cannot deadlock. Otherwise the call is enqueued FIFO; it fails with
// ErrNotServing when the loop is not running, ErrQueueFull when the bounded
// queue cannot accept it, and ErrDispatchTimeout when the configured wait
// bound elapses first. A timed-out operation may still run on the loop; its
// result is discarded.
//
// Errors returned by op itself come back unchanged, so errors.Is and
// errors.As work through Invoke.
func (d *Dispatcher) Invoke(ctx context.Context, op Operation) (any, error) {
	inv, err := d.submit(ctx, op)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		// owner context, executed inline by submit
		return d.run(withOwner(ctx, d), op)
	}
	return d.await(ctx, inv)
}

// InvokeAsync enqueues op and returns a Future for its outcome instead of
// blocking. From an owner context the operation runs before InvokeAsync
// returns and the future is already complete.
func (d *Dispatcher) InvokeAsync(ctx context.Context, op Operation) (Future, error) {
	inv, err := d.submit(ctx, op)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		result, err := d.run(withOwner(ctx, d), op)
		return completedFuture{result: result, err: err}, nil
	}
	return &pendingFuture{d: d, ctx: ctx, inv: inv}, nil
}

// submit validates the call and enqueues it. A nil invocation with a nil
// error means the caller holds the owner context and must execute inline.
func (d *Dispatcher) submit(ctx context.Context, op Operation) (*invocation, error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	if ownerFrom(ctx) == d {
		d.metrics.inline()
		return nil, nil
	}

	inv := &invocation{
		ctx:      ctx,
		op:       op,
		done:     make(chan struct{}),
		accepted: time.Now(),
	}

	// The lock covers only the serving check and the queue hand-off; FIFO
	// order across concurrent callers is the order of these enqueues.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owner == nil || !d.serving.Load() {
		d.metrics.rejected("not_serving")
		return nil, ErrNotServing
	}
	select {
	case d.queue <- inv:
		d.metrics.enqueued(len(d.queue))
		return inv, nil
	default:
		d.metrics.rejected("queue_full")
		return nil, ErrQueueFull
	}
}

func (d *Dispatcher) await(ctx context.Context, inv *invocation) (any, error) {
	var expired <-chan time.Time
	if d.timeout > 0 {
		timer := time.NewTimer(d.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-inv.done:
		return inv.result, inv.err
	case <-expired:
		d.metrics.timedOut()
		return nil, fmt.Errorf("%w after %s", ErrDispatchTimeout, d.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do is the typed front door for Invoke. It preserves the operation's result
// type without the caller touching any.
func Do[T any](ctx context.Context, d *Dispatcher, op func(context.Context) (T, error)) (T, error) {
	result, err := d.Invoke(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return stdx.Zero[T](), err
	}
	if result == nil {
		return stdx.Zero[T](), nil
	}
	v, ok := result.(T)
	if !ok {
		return stdx.Zero[T](), fmt.Errorf("dispatch: operation returned %T, expected %T", result, stdx.Zero[T]())
	}
	return v, nil
}
