package daemon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

var (
	// evaluationsTotal counts calculations by outcome (number, text or error).
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetcalc_evaluations_total",
		Help: "Total calculations by outcome",
	}, []string{"outcome"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vetcalc_evaluation_duration_seconds",
		Help:    "Calculation duration in seconds, input parsing included",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	})

	// catalogMutationsTotal counts successful catalog changes by operation.
	catalogMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetcalc_catalog_mutations_total",
		Help: "Total catalog mutations by operation",
	}, []string{"op"})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetcalc_store_errors_total",
		Help: "Total failed store reads and writes",
	}, []string{"op"})

	customCalculators = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vetcalc_custom_calculators",
		Help: "Number of custom calculators in the catalog",
	})

	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vetcalc_event_subscribers",
		Help: "Number of open event streams",
	})
)

func observeEvaluation(r calculator.Result, took time.Duration) {
	evaluationsTotal.WithLabelValues(string(r.Kind)).Inc()
	evaluationDuration.Observe(took.Seconds())
}

func observeMutation(op string, customCount int) {
	catalogMutationsTotal.WithLabelValues(op).Inc()
	customCalculators.Set(float64(customCount))
}

func observeStoreError(op string, _ error) {
	storeErrorsTotal.WithLabelValues(op).Inc()
}
