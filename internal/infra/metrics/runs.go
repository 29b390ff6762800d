package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(runsStartedTotal, runsFinishedTotal, jobsDiscoveredTotal, jobsProcessedTotal) }

var runsStartedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pipeline_runs_started_total",
		Help: "Total number of pipeline runs started.",
	},
)

var runsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_runs_finished_total",
		Help: "Total number of pipeline runs finished, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed', 'cancelled'
)

var jobsDiscoveredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pipeline_jobs_discovered_total",
		Help: "Total job postings returned by discovery across all runs.",
	},
)

var jobsProcessedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pipeline_jobs_processed_total",
		Help: "Total jobs successfully tailored and marked ready.",
	},
)

func IncRunStarted() { runsStartedTotal.Inc() }

func IncRunFinished(status string) {
	runsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func AddJobsDiscovered(n int) { jobsDiscoveredTotal.Add(float64(n)) }

func IncJobProcessed() { jobsProcessedTotal.Inc() }
