package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(bulkActionItemsTotal, jobsExpiredTotal) }

var bulkActionItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bulk_action_items_total",
		Help: "Bulk action items processed, labeled by action and outcome.",
	},
	[]string{"action", "outcome"}, // outcome: 'succeeded', 'failed'
)

var jobsExpiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "jobs_expired_total",
		Help: "Jobs moved to expired by the age-out worker.",
	},
)

func IncBulkItem(action string, ok bool) {
	outcome := "succeeded"
	if !ok {
		outcome = "failed"
	}
	bulkActionItemsTotal.WithLabelValues(norm(action), outcome).Inc()
}

func AddJobsExpired(n int64) { jobsExpiredTotal.Add(float64(n)) }
