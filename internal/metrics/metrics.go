// Package metrics declares the Prometheus collectors of the service. They are
// registered on the default registry and served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Booking attempts by outcome ("committed" or the error code).
	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_bookings_total",
		Help: "Seat booking attempts by outcome",
	}, []string{"outcome"})

	// Cancellation attempts by outcome.
	Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_cancellations_total",
		Help: "Reservation cancellation attempts by outcome",
	}, []string{"outcome"})

	// Points moved through the ledger, by reason.
	PointsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_moved_total",
		Help: "Absolute points moved through the ledger by reason",
	}, []string{"reason"})

	// Wall time of booking and cancellation units of work.
	TxDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_tx_duration_seconds",
		Help:    "Duration of booking and cancellation transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// Events that could not be handed to the broker.
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_event_publish_failures_total",
		Help: "Reservation events that failed to publish",
	})

	// Events written by the worker, by type.
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_events_consumed_total",
		Help: "Reservation events processed by the worker",
	}, []string{"type"})
)
