// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_jobs_total",
			Help: "Total number of delivery jobs by terminal outcome",
		},
		[]string{"channel", "outcome"},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_jobs_failed_total",
			Help: "Total number of delivery jobs failed back to the broker",
		},
		[]string{"channel", "error_code"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "delivery_job_duration_seconds",
			Help: "Duration of delivery job processing in seconds",
		},
		[]string{"channel"},
	)

	DuplicateJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_duplicate_jobs_total",
			Help: "Redelivered jobs short-circuited by the idempotency guard",
		},
		[]string{"channel"},
	)

	StatusReportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_status_report_failures_total",
			Help: "Fire-and-forget status reports that could not be delivered",
		},
		[]string{"channel"},
	)
)
