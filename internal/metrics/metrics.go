// Package metrics declares the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapacityReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_capacity_reservations_total",
			Help: "Total number of seat reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	CapacityReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ewm_capacity_releases_total",
			Help: "Total number of confirmed seats released by cancellation",
		},
	)

	ParticipationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ewm_participation_requests_total",
			Help: "Total number of participation requests created by initial status",
		},
		[]string{"status"},
	)

	ViewsFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ewm_views_fallbacks_total",
			Help: "Total number of view count lookups answered from cache or zero",
		},
	)

	StatsHitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ewm_stats_hit_failures_total",
			Help: "Total number of hits the stats server did not accept",
		},
	)
)
