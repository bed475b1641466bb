// Package metrics collects job counters of a single run in a private
// prometheus registry. The registry can be dumped in the text exposition
// format, suitable for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	jobs     prometheus.Counter
	failed   prometheus.Counter
	inFlight prometheus.Gauge
	duration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multigrm_jobs_total",
			Help: "Total number of finished genotyping jobs",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multigrm_jobs_failed_total",
			Help: "Total number of genotyping jobs which produced an error record",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "multigrm_jobs_in_flight",
			Help: "Current number of running genotyping jobs",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "multigrm_job_duration_seconds",
			Help:    "Wall clock duration of genotyping jobs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	m.registry.MustRegister(m.jobs, m.failed, m.inFlight, m.duration)
	return m
}

// Start marks a job as running. All methods are no-op on nil receiver.
func (m *Metrics) Start() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Done marks a job started by Start as finished.
func (m *Metrics) Done(failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.jobs.Inc()
	if failed {
		m.failed.Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
