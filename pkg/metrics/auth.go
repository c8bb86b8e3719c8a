package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMetrics records authentication and admin operation outcomes.
// A nil *AuthMetrics is a valid no-op recorder.
type AuthMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewAuthMetrics creates a Prometheus-backed AuthMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAuthMetrics() *AuthMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &AuthMetrics{
		attempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mongoauth_auth_attempts_total",
				Help: "Total number of authentication attempts by result",
			},
			[]string{"result"}, // "success", "failure", "error"
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mongoauth_operation_duration_milliseconds",
				Help: "Duration of directory operations in milliseconds",
				Buckets: []float64{
					1,    // 1ms - cached client, local db
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms - cold client open
					1000, // 1s
					5000, // 5s - connect timeout territory
				},
			},
			[]string{"operation"},
		),
	}
}

// RecordAuthAttempt records an authentication attempt.
// result is "success", "failure" or "error".
func (m *AuthMetrics) RecordAuthAttempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

// ObserveOperation records the duration of a directory operation.
func (m *AuthMetrics) ObserveOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}
