package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the Prometheus collectors published by the daemon. All
// fields are safe for concurrent use once registered.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	PagesDegraded prometheus.Counter

	PageExtractSeconds prometheus.Histogram
	PageCorrectSeconds prometheus.Histogram
	AssembleSeconds    prometheus.Histogram

	JobsInProgress prometheus.Gauge
}

// NewMetrics builds the collector set and registers it with reg. A nil
// registerer leaves the collectors unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan2ebook_jobs_submitted_total",
			Help: "Conversion jobs accepted at the submission boundary.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan2ebook_jobs_completed_total",
			Help: "Conversion jobs that produced an artifact.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan2ebook_jobs_failed_total",
			Help: "Conversion jobs that ended in the failed state.",
		}),
		PagesDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan2ebook_pages_degraded_total",
			Help: "Pages that fell back to placeholder or raw text.",
		}),
		PageExtractSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan2ebook_page_extract_seconds",
			Help:    "Wall time of the OCR call per page.",
			Buckets: prometheus.DefBuckets,
		}),
		PageCorrectSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan2ebook_page_correct_seconds",
			Help:    "Wall time of the correction call per page.",
			Buckets: prometheus.DefBuckets,
		}),
		AssembleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan2ebook_assemble_seconds",
			Help:    "Wall time of container assembly per job.",
			Buckets: prometheus.DefBuckets,
		}),
		JobsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scan2ebook_jobs_in_progress",
			Help: "Jobs currently in the processing state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.JobsSubmitted, m.JobsCompleted, m.JobsFailed, m.PagesDegraded,
			m.PageExtractSeconds, m.PageCorrectSeconds, m.AssembleSeconds,
			m.JobsInProgress,
		)
	}
	return m
}
