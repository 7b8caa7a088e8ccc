package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reservations counts reserve attempts by outcome kind.
	Reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "reservations_total",
			Help:      "The total number of reservation attempts",
		},
		[]string{"result"},
	)

	// Payments counts finalize attempts by outcome kind.
	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "payments_total",
			Help:      "The total number of payment finalization attempts",
		},
		[]string{"result"},
	)

	ReceiptsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "receipts_generated_total",
			Help:      "The total number of receipt artifact generations",
		},
		[]string{"result"},
	)

	// CodeRetries counts units of work retried after a generated code collided.
	CodeRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "code_collision_retries_total",
			Help:      "The total number of retries caused by colliding generated codes",
		},
		[]string{"operation"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "http",
			Name:      "request_duration_seconds",
			Help:      "The time spent serving HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Result labels an outcome: "ok" for success, the error kind otherwise.
func Result(err error, kind func(error) string) string {
	if err == nil {
		return "ok"
	}
	return kind(err)
}
