package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by initial status.",
		},
		[]string{"status"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "reservation_cancelled_total",
			Help:      "Count of reservations cancelled.",
		},
	)

	reservationCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "reservation_completed_total",
			Help:      "Count of reservations closed by the completion sweep.",
		},
	)

	adminDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "admin_decision_total",
			Help:      "Count of administrative decisions over reservations.",
		},
		[]string{"decision"},
	)

	validationFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "validation_failure_total",
			Help:      "Count of rejected reservation requests by reason.",
		},
		[]string{"reason"},
	)

	concurrencyRetry = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "concurrency_retry_total",
			Help:      "Count of internal retries after lock or version contention.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservas",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated,
			reservationCancelled,
			reservationCompleted,
			adminDecision,
			validationFailure,
			concurrencyRetry,
			httpRequests,
		)
	})
}

func IncReservationCreated(status string) {
	reservationCreated.WithLabelValues(status).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

func AddReservationCompleted(n int) {
	reservationCompleted.Add(float64(n))
}

func IncAdminDecision(decision string) {
	adminDecision.WithLabelValues(decision).Inc()
}

func IncValidationFailure(reason string) {
	validationFailure.WithLabelValues(reason).Inc()
}

func IncConcurrencyRetry() {
	concurrencyRetry.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
