package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/identd/mongoauth/pkg/clientcache"
)

// cacheMetrics is the Prometheus implementation of clientcache.Metrics.
type cacheMetrics struct {
	acquires  *prometheus.CounterVec
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// NewCacheMetrics creates a Prometheus-backed clientcache.Metrics sink.
//
// Returns nil if metrics are not enabled (InitRegistry not called);
// the cache treats a nil sink as a no-op.
func NewCacheMetrics() clientcache.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &cacheMetrics{
		acquires: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mongoauth_client_cache_acquires_total",
				Help: "Total number of client cache acquires by status",
			},
			[]string{"status"}, // "hit", "miss"
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mongoauth_client_cache_evictions_total",
				Help: "Total number of clients evicted after TTL expiry",
			},
		),
		size: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mongoauth_client_cache_size",
				Help: "Current number of cached database clients",
			},
		),
	}
}

func (m *cacheMetrics) Hit() {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues("hit").Inc()
}

func (m *cacheMetrics) Miss() {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues("miss").Inc()
}

func (m *cacheMetrics) Opened(size int) {
	if m == nil {
		return
	}
	m.size.Set(float64(size))
}

func (m *cacheMetrics) Evicted(n int) {
	if m == nil {
		return
	}
	m.evictions.Add(float64(n))
	m.size.Sub(float64(n))
}
