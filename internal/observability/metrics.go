package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gnezdo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gnezdo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	handoverCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gnezdo",
			Subsystem: "workflow",
			Name:      "handover_completions_total",
			Help:      "Completed handovers by outcome (finalized or active).",
		},
		[]string{"outcome"},
	)
	notifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gnezdo",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notification deliveries that failed and were dropped.",
		},
		[]string{"event_type"},
	)
	sweepExpirations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gnezdo",
			Subsystem: "sweep",
			Name:      "expirations_total",
			Help:      "Entities expired or canceled by the background sweeper.",
		},
		[]string{"entity"},
	)
)

// RegisterMetrics registers all collectors once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, handoverCompletions, notifyFailures, sweepExpirations)
	})
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordHandoverCompletion records a completed handover by placement outcome.
func RecordHandoverCompletion(outcome string) {
	RegisterMetrics()
	handoverCompletions.WithLabelValues(outcome).Inc()
}

// RecordNotifyFailure records a dropped notification.
func RecordNotifyFailure(eventType string) {
	RegisterMetrics()
	notifyFailures.WithLabelValues(eventType).Inc()
}

// RecordSweepExpiration records entities cleaned up by the sweeper.
func RecordSweepExpiration(entity string, count int64) {
	RegisterMetrics()
	sweepExpirations.WithLabelValues(entity).Add(float64(count))
}
