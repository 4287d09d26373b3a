// Package monitoring exposes Prometheus counters and histograms for
// the ticketing hot paths.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts reservation attempts by outcome:
	// confirmed, replayed, sold_out, insufficient_capacity,
	// per_reservation_limit, duplicate, unavailable, not_found,
	// invalid, error.
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "haunt",
		Subsystem: "ticketing",
		Name:      "reservations_total",
		Help:      "Reservation attempts by outcome.",
	}, []string{"outcome"})

	// RedemptionsTotal counts scan attempts by outcome: redeemed,
	// already_redeemed, expired, not_found, error.
	RedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "haunt",
		Subsystem: "ticketing",
		Name:      "redemptions_total",
		Help:      "Validation token scan attempts by outcome.",
	}, []string{"outcome"})

	// ReservationDuration observes the end-to-end latency of the
	// booking transaction as seen by the HTTP handler.
	ReservationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "haunt",
		Subsystem: "ticketing",
		Name:      "reservation_duration_seconds",
		Help:      "Latency of reservation requests.",
		Buckets:   prometheus.DefBuckets,
	})

	// RemainingCapacity mirrors the advisory remaining count last
	// served for each day.  Advisory like its source: dashboards only.
	RemainingCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "haunt",
		Subsystem: "ticketing",
		Name:      "remaining_capacity",
		Help:      "Last observed remaining tickets per event date.",
	}, []string{"day"})
)
