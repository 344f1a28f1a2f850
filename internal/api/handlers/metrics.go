package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pvbat_computations_total",
		Help: "Dispatch computations by model and outcome.",
	}, []string{"model", "outcome"})

	computeSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pvbat_computation_duration_seconds",
		Help:    "Engine run time by model.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"model"})

	dailyCost = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pvbat_daily_cost_eur",
		Help:    "Total cost of successful computations.",
		Buckets: []float64{0, .5, 1, 2, 3, 5, 8, 13},
	}, []string{"model"})
)
