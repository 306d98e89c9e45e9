// Package dispatch marshals owner-affine operations onto a single designated
// goroutine. Some operations are only safe to run from one place: SDK clients
// that register process signal handlers, libraries with hidden thread-local
// state, or anything the surrounding framework requires to run on its main
// loop. This package gives callers on arbitrary goroutines a plain synchronous
// call contract for such operations, while guaranteeing that the operation
// itself always executes on the owner's loop, one at a time, in the order the
// calls were accepted.
//
// Design decisions:
//   - Explicit ownership: a Dispatcher is an explicitly constructed value and
//     the owner identity is an explicit handle (Owner), never an implicit
//     package-level singleton. Initialization order and test isolation stay
//     visible at the call site.
//   - Context-carried identity: goroutines have no inspectable identity, so
//     the serve loop tags the context it hands to each operation. A call to
//     Invoke with that context executes in place instead of queueing, which
//     makes reentrant invocations safe by construction.
//   - Single lock, never held while waiting: the dispatcher's mutex guards
//     only the owner identity and the queue hand-off. The blocking wait for a
//     result happens on a per-invocation channel outside the lock, so a
//     waiting caller can never deadlock the serve loop.
//   - No automatic retries: the dispatcher consumes exactly one loop turn per
//     invocation and surfaces every outcome, including the operation's own
//     error with its identity preserved for errors.Is.
//
// A timed-out caller abandons its wait; the operation may still run on the
// loop and its result is discarded. That race is accepted and documented
// rather than papered over with cancellation the loop cannot guarantee.
//
// Example usage:
//
//	d := dispatch.New(dispatch.WithTimeout(30 * time.Second))
//	owner := dispatch.NewOwner()
//
//	go func() {
//		// the framework's main goroutine
//		_ = d.Serve(ctx, owner)
//	}()
//
//	// any worker goroutine
//	out, err := dispatch.Do(ctx, d, func(ctx context.Context) (string, error) {
//		return client.Complete(ctx, prompt)
//	})
package dispatch
