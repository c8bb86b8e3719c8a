package clientcache

// Metrics is the sink for cache instrumentation. The prometheus
// implementation lives in pkg/metrics; tests install counting fakes.
type Metrics interface {
	// Hit records an acquire that found a cached entry.
	Hit()

	// Miss records an acquire that had to open a new client.
	Miss()

	// Opened records a successful open and the resulting cache size.
	Opened(size int)

	// Evicted records the number of entries removed by a sweep.
	Evicted(n int)
}

// NopMetrics discards all instrumentation.
type NopMetrics struct{}

func (NopMetrics) Hit()        {}
func (NopMetrics) Miss()       {}
func (NopMetrics) Opened(int)  {}
func (NopMetrics) Evicted(int) {}
