package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GranuleFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsif_granule_fetches_total",
			Help: "Total granule fetch attempts",
		},
		[]string{"source", "status"},
	)

	GranuleFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridsif_granule_fetch_latency_seconds",
			Help:    "Granule fetch latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"source"},
	)

	FootprintsSelectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsif_footprints_selected_total",
			Help: "Footprints passing the bounds and filter predicates",
		},
		[]string{"dataset"},
	)

	FootprintsAccumulatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsif_footprints_accumulated_total",
			Help: "Footprints folded into the accumulator, by mode",
		},
		[]string{"dataset", "mode"},
	)

	FootprintsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsif_footprints_skipped_total",
			Help: "Footprints dropped because their longitudinal index span reached the subdivision factor",
		},
		[]string{"dataset"},
	)

	DaysGriddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridsif_days_gridded_total",
			Help: "Time slices finalized, by outcome",
		},
		[]string{"dataset", "outcome"},
	)
)
