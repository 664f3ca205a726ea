package drain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the drain counters exported on --metrics-addr.
type Metrics struct {
	chunksSubmitted prometheus.Counter
	jobsSubmitted   prometheus.Counter
	jobsCompleted   prometheus.Counter
	jobsResubmitted prometheus.Counter
	statusRefreshes prometheus.Counter
	filesRemoved    prometheus.Counter
	iterations      prometheus.Counter
	activeJobs      prometheus.Gauge
	pendingJobs     prometheus.Gauge
	pollSeconds     prometheus.Histogram
}

// NewMetrics registers the drain metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		chunksSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "chunks_submitted_total",
			Help:      "Number of chunk scripts submitted.",
		}),
		jobsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "jobs_submitted_total",
			Help:      "Number of jobs submitted, including resubmissions.",
		}),
		jobsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "jobs_completed_total",
			Help:      "Number of jobs whose result was folded into the destination.",
		}),
		jobsResubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "jobs_resubmitted_total",
			Help:      "Number of lost jobs resubmitted.",
		}),
		statusRefreshes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "status_refreshes_total",
			Help:      "Number of scheduler status queries.",
		}),
		filesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "cleaner",
			Name:      "files_removed_total",
			Help:      "Number of artifacts deleted.",
		}),
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "iterations_total",
			Help:      "Number of drain loop iterations.",
		}),
		activeJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "active_jobs",
			Help:      "Jobs submitted and not yet completed.",
		}),
		pendingJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "pending_jobs",
			Help:      "Jobs not yet chunked.",
		}),
		pollSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "psqs",
			Subsystem: "drain",
			Name:      "poll_seconds",
			Help:      "Time spent reading outputs per iteration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}
