package dispatch

import (
	"time"

	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WithTimeout bounds how long a non-owner caller waits for the owner loop
	// to complete its invocation. Zero (the default) waits indefinitely.
	WithTimeout = opts.ForName[Dispatcher, time.Duration]("timeout")

	// WithQueueDepth sets the bound on pending invocations. Enqueueing beyond
	// it fails fast with ErrQueueFull instead of blocking the caller.
	WithQueueDepth = opts.ForName[Dispatcher, int]("queueDepth")
)

// WithMetrics registers the dispatcher's prometheus collectors (inline and
// queued invocation counters, rejection counter by reason, wait timeouts,
// queue depth gauge, dispatch latency histogram) with reg.
func WithMetrics(reg prometheus.Registerer) opts.Option[Dispatcher] {
	return opts.Type[Dispatcher](func(d *Dispatcher) error {
		d.metrics = newMetrics(reg)
		return nil
	})
}
