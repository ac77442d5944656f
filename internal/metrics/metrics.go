// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Claims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyping_claims_total",
			Help: "Ledger claims by fire kind and result",
		},
		[]string{"kind", "result"}, // result: won|duplicate|error
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyping_deliveries_total",
			Help: "Channel send attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dailyping_delivery_duration_seconds",
			Help:    "Duration of a single channel send",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dailyping_pass_duration_seconds",
			Help:    "Duration of a full trigger or reconciliation pass",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"pass"},
	)

	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyping_reconciliations_total",
			Help: "Per-user reconciliation outcomes",
		},
		[]string{"outcome"}, // updated|unchanged|transient|conflict|error
	)

	Streaks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dailyping_streak_transitions_total",
			Help: "Streak transitions applied on submission",
		},
		[]string{"transition"}, // extended|reset|unchanged
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
