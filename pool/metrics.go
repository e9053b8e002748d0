package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics wraps the pool's counters in prometheus collectors, modeled
// on facebook-time's ptp4u/stats package (atomic counters exported through
// a small set of named collectors rather than one do-everything struct).
// A nil *promMetrics is valid and every method is a no-op, so pools created
// without WithPrometheus pay no registration cost.
type promMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	evictDur  prometheus.Histogram
}

func newPromMetrics(name string) *promMetrics {
	return &promMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lifx", Subsystem: "pool", Name: "hits_total",
			ConstLabels: prometheus.Labels{"pool": name},
			Help:        "Connection pool cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lifx", Subsystem: "pool", Name: "misses_total",
			ConstLabels: prometheus.Labels{"pool": name},
			Help:        "Connection pool cache misses.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lifx", Subsystem: "pool", Name: "evictions_total",
			ConstLabels: prometheus.Labels{"pool": name},
			Help:        "Connection pool LRU evictions.",
		}),
		evictDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lifx", Subsystem: "pool", Name: "eviction_duration_seconds",
			ConstLabels: prometheus.Labels{"pool": name},
			Help:        "Time spent closing an evicted connection.",
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

// Register registers every collector against reg.
func (m *promMetrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.evictions, m.evictDur} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *promMetrics) incHit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *promMetrics) incMiss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *promMetrics) observeEviction(d time.Duration) {
	if m == nil {
		return
	}
	m.evictions.Inc()
	m.evictDur.Observe(d.Seconds())
}
