package provider

import (
	"context"

	"github.com/skeinworks/skein/dispatch"
)

// Dispatched wraps a provider whose SDK is only safe to call from one
// goroutine, typically because its client registers signal handlers or
// other process-wide facilities at call time. Completions requested from any
// goroutine are marshaled onto the dispatcher's owner loop and the outcome
// is returned to the caller as if the call had been local.
func Dispatched(d *dispatch.Dispatcher, p Provider) Provider {
	return dispatched{dispatcher: d, wrapped: p}
}

type dispatched struct {
	dispatcher *dispatch.Dispatcher
	wrapped    Provider
}

func (d dispatched) Complete(ctx context.Context, params CompletionParams) (Completion, error) {
	return dispatch.Do(ctx, d.dispatcher, func(ctx context.Context) (Completion, error) {
		return d.wrapped.Complete(ctx, params)
	})
}
