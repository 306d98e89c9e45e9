package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics is nil-safe: a dispatcher without WithMetrics carries a nil
// *metrics and every method degrades to a no-op.
type metrics struct {
	inlineTotal   prometheus.Counter
	queuedTotal   prometheus.Counter
	rejectedTotal *prometheus.CounterVec
	timeoutsTotal prometheus.Counter
	depth         prometheus.Gauge
	latency       prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		inlineTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skein",
			Subsystem: "dispatch",
			Name:      "inline_invocations_total",
			Help:      "Invocations executed in place on the owner loop.",
		}),
		queuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skein",
			Subsystem: "dispatch",
			Name:      "queued_invocations_total",
			Help:      "Invocations accepted onto the dispatch queue.",
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skein",
			Subsystem: "dispatch",
			Name:      "rejected_invocations_total",
			Help:      "Invocations rejected before enqueueing.",
		}, []string{"reason"}),
		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skein",
			Subsystem: "dispatch",
			Name:      "wait_timeouts_total",
			Help:      "Callers that abandoned their wait on the owner loop.",
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skein",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Pending invocations awaiting the owner loop.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skein",
			Subsystem: "dispatch",
			Name:      "latency_seconds",
			Help:      "Time from enqueue to completion on the owner loop.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.inlineTotal, m.queuedTotal, m.rejectedTotal, m.timeoutsTotal, m.depth, m.latency)
	return m
}

func (m *metrics) inline() {
	if m == nil {
		return
	}
	m.inlineTotal.Inc()
}

func (m *metrics) enqueued(depth int) {
	if m == nil {
		return
	}
	m.queuedTotal.Inc()
	m.depth.Set(float64(depth))
}

func (m *metrics) queueDepth(depth int) {
	if m == nil {
		return
	}
	m.depth.Set(float64(depth))
}

func (m *metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *metrics) timedOut() {
	if m == nil {
		return
	}
	m.timeoutsTotal.Inc()
}

func (m *metrics) observeLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}
