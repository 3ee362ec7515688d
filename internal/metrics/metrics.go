package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreRequestsTotal tracks calls made to the secret store (by operation and status).
	StoreRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretsconfig_store_requests_total",
			Help: "Total number of secret store requests (by operation and status).",
		},
		[]string{"operation", "status"},
	)

	// StoreRequestDuration measures secret store call latency.
	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secretsconfig_store_request_duration_seconds",
			Help:    "Duration of secret store requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"operation"},
	)

	// FetchCyclesTotal counts complete fetch cycles by trigger (load, poll, force) and result.
	FetchCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretsconfig_fetch_cycles_total",
			Help: "Number of fetch cycles run (by trigger and result).",
		},
		[]string{"trigger", "result"},
	)

	// FetchDuration measures how long a whole fetch cycle takes.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secretsconfig_fetch_duration_seconds",
			Help:    "Duration of a complete fetch cycle in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"trigger"},
	)

	// SecretsSkippedTotal counts secrets that contributed no keys, by reason.
	SecretsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretsconfig_secrets_skipped_total",
			Help: "Secrets skipped during fetch (by reason: filtered, binary, missing).",
		},
		[]string{"reason"},
	)

	// ReloadsTotal counts published snapshot changes.
	ReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secretsconfig_reloads_total",
			Help: "Number of times a changed snapshot was published to observers.",
		},
	)

	// SnapshotKeys reports the number of keys in the currently published snapshot.
	SnapshotKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "secretsconfig_snapshot_keys",
			Help: "Number of configuration keys in the current snapshot.",
		},
	)

	// NATSPublishTotal tracks reload event publishes by subject and status.
	NATSPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretsconfig_nats_publish_total",
			Help: "Reload events published to NATS (by subject and status).",
		},
		[]string{"subject", "status"},
	)
)

// IncStoreRequest increments the store request counter.
func IncStoreRequest(operation, status string) {
	StoreRequestsTotal.WithLabelValues(operation, status).Inc()
}

// IncFetchCycle increments the fetch cycle counter.
func IncFetchCycle(trigger, result string) {
	FetchCyclesTotal.WithLabelValues(trigger, result).Inc()
}

// IncSecretSkipped increments the skipped secret counter.
func IncSecretSkipped(reason string) {
	SecretsSkippedTotal.WithLabelValues(reason).Inc()
}

// IncNATSPublish increments the NATS publish counter.
func IncNATSPublish(subject, status string) {
	NATSPublishTotal.WithLabelValues(subject, status).Inc()
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}
