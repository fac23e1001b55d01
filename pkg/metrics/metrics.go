package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking metrics
	BookingsCreated    *prometheus.CounterVec
	BookingConflicts   prometheus.Counter
	BookingUnavailable prometheus.Counter
	BookingLockWaits   prometheus.Counter
	SeriesCreated      prometheus.Counter
	SessionsCompleted  *prometheus.CounterVec

	// Outbox metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on the default
// registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers all application metrics on the given registerer.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of appointments created",
		}, []string{"kind"}),
		BookingConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Total number of bookings rejected due to scheduling conflicts",
		}),
		BookingUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_unavailable_total",
			Help:      "Total number of bookings rejected as outside availability",
		}),
		BookingLockWaits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_lock_contention_total",
			Help:      "Total number of bookings that failed to acquire the clinician lock",
		}),
		SeriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_series_created_total",
			Help:      "Total number of recurring series created",
		}),
		SessionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of completed sessions by allowance kind",
		}, []string{"kind"}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
