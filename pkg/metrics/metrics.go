// Package metrics exposes Prometheus metrics for imports and lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of an engine. A nil *Metrics records nothing.
type Metrics struct {
	importsTotal    *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
	importedEntries *prometheus.CounterVec
	lookupsTotal    *prometheus.CounterVec
	lookupDuration  prometheus.Histogram
	lookupPositions prometheus.Histogram

	collectors []prometheus.Collector
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexicard_imports_total",
			Help: "Total number of dictionary imports",
		},
		[]string{"format", "status"}, // status: success, error
	)
	m.importDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexicard_import_duration_seconds",
			Help:    "Time taken to import a dictionary",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
		},
		[]string{"format"},
	)
	m.importedEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexicard_imported_entries_total",
			Help: "Total number of lexicon entries imported",
		},
		[]string{"format"},
	)
	m.lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexicard_lookups_total",
			Help: "Total number of text lookups",
		},
		[]string{"status"},
	)
	m.lookupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lexicard_lookup_duration_seconds",
		Help:    "Time taken to look up a text",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})
	m.lookupPositions = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lexicard_lookup_positions",
		Help:    "Number of text positions with matches per lookup",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	m.collectors = []prometheus.Collector{
		m.importsTotal, m.importDuration, m.importedEntries,
		m.lookupsTotal, m.lookupDuration, m.lookupPositions,
	}
	if err := reg.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordImport records a finished import of format.
func (m *Metrics) RecordImport(format string, entries int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(format, status(err)).Inc()
	m.importDuration.WithLabelValues(format).Observe(d.Seconds())
	if err == nil {
		m.importedEntries.WithLabelValues(format).Add(float64(entries))
	}
}

// RecordLookup records a finished lookup.
func (m *Metrics) RecordLookup(positions int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(status(err)).Inc()
	m.lookupDuration.Observe(d.Seconds())
	if err == nil {
		m.lookupPositions.Observe(float64(positions))
	}
}
