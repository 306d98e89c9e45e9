package dispatch

import "context"

type ownerKey struct{}

// withOwner tags ctx as executing on the dispatcher's owner loop. The serve
// loop applies this to every operation it runs, so nested Invoke calls see the
// tag and execute in place instead of queueing behind themselves.
func withOwner(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, ownerKey{}, d)
}

func ownerFrom(ctx context.Context) *Dispatcher {
	d, _ := ctx.Value(ownerKey{}).(*Dispatcher)
	return d
}

// IsOwnerContext reports whether ctx originates from this dispatcher's serve
// loop. Integrators pinning work to the owner loop can use this to assert
// they are where they think they are.
func (d *Dispatcher) IsOwnerContext(ctx context.Context) bool {
	return ownerFrom(ctx) == d
}
