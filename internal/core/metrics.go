package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes recorded in d0010_files_processed_total.
const (
	OutcomeImported = "imported"
	OutcomeDryRun   = "dry_run"
	OutcomeFailed   = "failed"
)

// Metrics holds the importer's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	filesProcessed   *prometheus.CounterVec
	readingsImported prometheus.Counter
	readingsParsed   prometheus.Counter
	importDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, falling back
// to the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "d0010_files_processed_total",
			Help: "Flow files processed, by outcome.",
		}, []string{"outcome"}),
		readingsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "d0010_readings_imported_total",
			Help: "Readings newly written to the store.",
		}),
		readingsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "d0010_readings_parsed_total",
			Help: "Readings parsed from flow files, including dry runs and duplicates.",
		}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "d0010_file_import_duration_seconds",
			Help:    "Time to check, parse and store one flow file.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
	}

	reg.MustRegister(m.filesProcessed, m.readingsImported, m.readingsParsed, m.importDuration)

	for _, outcome := range []string{OutcomeImported, OutcomeDryRun, OutcomeFailed} {
		m.filesProcessed.WithLabelValues(outcome)
	}

	return m
}

// observeFile records one processed file.
func (m *Metrics) observeFile(outcome string, parsed, imported int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.filesProcessed.WithLabelValues(outcome).Inc()
	m.readingsParsed.Add(float64(parsed))
	m.readingsImported.Add(float64(imported))
	m.importDuration.Observe(elapsed.Seconds())
}
