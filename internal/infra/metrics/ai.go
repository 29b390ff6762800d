package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(scoringLatencyMs, sourceResultsTotal) }

var scoringLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "scoring_latency_ms",
		Help:    "Suitability scoring call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"success"},
)

var sourceResultsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "discovery_source_results_total",
		Help: "Discovery outcomes per source.",
	},
	[]string{"source", "outcome"}, // outcome: 'ok', 'failed'
)

func ObserveScoring(d time.Duration, success bool) {
	scoringLatencyMs.WithLabelValues(strconv.FormatBool(success)).
		Observe(float64(d / time.Millisecond))
}

func IncSourceResult(source string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	sourceResultsTotal.WithLabelValues(norm(source), outcome).Inc()
}
