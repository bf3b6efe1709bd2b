package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worklog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_commands_total",
			Help: "Chat commands handled, by outcome.",
		},
		[]string{"command", "outcome"},
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_quota_decisions_total",
			Help: "Quota gate decisions for gated commands.",
		},
		[]string{"command", "decision"},
	)

	UsageStoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_usage_store_errors_total",
			Help: "Usage store operations that failed and degraded to defaults.",
		},
		[]string{"op"},
	)

	TableOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worklog_table_op_duration_seconds",
			Help:    "Daily log table operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	SummarizerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklog_summarizer_requests_total",
			Help: "AI summary requests by provider and status.",
		},
		[]string{"provider", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CommandsTotal,
		QuotaDecisionsTotal,
		UsageStoreErrorsTotal,
		TableOpDuration,
		SummarizerRequestsTotal,
	)
}
