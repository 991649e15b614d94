// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_runs_total",
			Help: "Total number of overdue runs by result",
		},
		[]string{"result"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watchdog_run_duration_seconds",
			Help:    "Duration of an overdue run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SubjectsOverdue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchdog_subjects_overdue",
			Help: "Number of overdue subjects found by the last run",
		},
	)

	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_escalations_total",
			Help: "Total number of escalation outcomes by status",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_notifications_total",
			Help: "Total number of contact notifications by delivery mode and result",
		},
		[]string{"mode", "result"},
	)
)
