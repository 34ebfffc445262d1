package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ message consumption latency in milliseconds.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// In-app notifications recorded, by result (recorded, skipped, failed).
	NotificationsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_recorded_total",
			Help: "Total number of in-app notifications recorded",
		},
		[]string{"result"},
	)

	// Push delivery attempts, by outcome (delivered, transient_error,
	// permanent_error, config_mismatch, skipped).
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Total number of web push delivery attempts",
		},
		[]string{"outcome"},
	)

	// Wall time of a full fan-out over one user's subscriptions.
	PushDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_dispatch_duration_seconds",
			Help:    "Duration of a full push fan-out for one user in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Subscriptions evicted after the push service reported them gone.
	PushSubscriptionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_subscriptions_evicted_total",
			Help: "Total number of push subscriptions evicted as expired",
		},
	)

	// Events dropped by the idempotency guard, by handler.
	EventsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_deduplicated_total",
			Help: "Total number of MQ events skipped as duplicates",
		},
		[]string{"handler"},
	)

	// Database query latency in seconds, by SQL verb.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// Queries slower than the configured threshold.
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_query_total",
			Help: "Total number of slow database queries",
		},
		[]string{"operation"},
	)
)

// RecordMQConsumeLatency records how long one MQ message took to handle.
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementNotificationsRecorded counts an in-app recording attempt.
func IncrementNotificationsRecorded(result string) {
	NotificationsRecorded.WithLabelValues(result).Inc()
}

// IncrementPushDeliveries counts one push delivery attempt by outcome.
func IncrementPushDeliveries(outcome string) {
	PushDeliveries.WithLabelValues(outcome).Inc()
}

// RecordPushDispatchDuration records the wall time of one user fan-out.
func RecordPushDispatchDuration(duration time.Duration) {
	PushDispatchDuration.Observe(duration.Seconds())
}

// IncrementPushSubscriptionsEvicted counts one evicted subscription.
func IncrementPushSubscriptionsEvicted() {
	PushSubscriptionsEvicted.Inc()
}

// IncrementEventsDeduplicated counts one duplicate event skip.
func IncrementEventsDeduplicated(handler string) {
	EventsDeduplicated.WithLabelValues(handler).Inc()
}

// RecordDBQueryDuration records a database query latency.
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a query that exceeded the slow threshold.
func IncrementSlowQuery(operation string) {
	SlowQueryCount.WithLabelValues(operation).Inc()
}
