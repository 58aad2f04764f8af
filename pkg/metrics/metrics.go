// Package metrics counts pipeline outcomes in a private Prometheus registry
// that batch runs export to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coolbeans/sc2patches/pkg/extract"
)

const namespace = "sc2patches"

// Metrics holds the collectors. A nil *Metrics ignores every call.
type Metrics struct {
	registry  *prometheus.Registry
	documents *prometheus.CounterVec
	changes   *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New registers the collectors in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by page layout and detected pattern.",
		}, []string{"layout", "pattern"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Change leaves seen by the extractor, by outcome and drop rule.",
		}, []string{"outcome", "rule"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Documents that could not be processed, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent processing one document.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"pattern"}),
	}
	m.registry.MustRegister(m.documents, m.changes, m.failures, m.duration)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDocument records one successfully processed document.
func (m *Metrics) ObserveDocument(layout, pattern string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(layout, pattern).Inc()
	m.duration.WithLabelValues(pattern).Observe(elapsed.Seconds())
}

// ObserveTally records the extractor's decisions for one document.
func (m *Metrics) ObserveTally(tally extract.Tally) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues("kept", "").Add(float64(tally.Kept))
	for rule, count := range tally.Dropped {
		m.changes.WithLabelValues("dropped", rule).Add(float64(count))
	}
}

// ObserveFailure records a document that was not processed.
func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

// WriteTextfile writes every metric in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
