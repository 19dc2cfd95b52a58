// Package observability provides execution metrics and the metrics server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// ReportExecutionsTotal tracks the total number of report executions.
	ReportExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servaan_report_executions_total",
			Help: "Total number of report executions",
		},
		[]string{"status"}, // status: success, error, timeout
	)

	// ReportExecutionDuration measures report execution duration in seconds.
	ReportExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servaan_report_execution_duration_seconds",
			Help:    "Report execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"status"},
	)

	// CacheProbesTotal counts dashboard cache probes by outcome.
	CacheProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servaan_report_cache_probes_total",
			Help: "Dashboard cache probes by outcome",
		},
		[]string{"outcome"}, // outcome: hit, miss
	)

	// SecurityRejectionsTotal counts queries rejected by the security gate.
	SecurityRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servaan_report_security_rejections_total",
			Help: "Report queries rejected by the security gate",
		},
	)
)
