package observability

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ifcgraph"

// Metrics holds the collectors for analysis and ingest timings. All methods
// are safe on a nil receiver so callers without metrics pay nothing.
type Metrics struct {
	registry *prometheus.Registry

	AnalysisPhase     *prometheus.HistogramVec
	StrategyRelations *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
	Batches           *prometheus.CounterVec
	BatchRows         *prometheus.CounterVec
	BatchRetries      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry, together with
// the Go runtime collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AnalysisPhase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each analysis phase",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		StrategyRelations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "relations_total",
			Help:      "Relations added by each detector strategy",
		}, []string{"detector", "strategy"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Duration of each write batch including its retry",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Write batches by phase and outcome",
		}, []string{"phase", "outcome"}),
		BatchRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Rows written by successful batches",
		}, []string{"phase"}),
		BatchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "retries_total",
			Help:      "Batch retries by phase",
		}, []string{"phase"}),
	}
	m.registry.MustRegister(
		m.AnalysisPhase,
		m.StrategyRelations,
		m.BatchDuration,
		m.Batches,
		m.BatchRows,
		m.BatchRetries,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePhase records the time since start for an analysis phase.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	if m == nil {
		return
	}
	m.AnalysisPhase.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// AddRelations counts relations contributed by one strategy.
func (m *Metrics) AddRelations(detector, strategy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StrategyRelations.WithLabelValues(detector, strategy).Add(float64(n))
}

// ObserveBatch records one finished write batch. The outcome is ok, failed,
// or cancelled when the batch was cut short by its parent context.
func (m *Metrics) ObserveBatch(phase string, start time.Time, rows, retries int, err error) {
	if m == nil {
		return
	}
	m.BatchDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	if retries > 0 {
		m.BatchRetries.WithLabelValues(phase).Add(float64(retries))
	}
	switch {
	case errors.Is(err, context.Canceled):
		m.Batches.WithLabelValues(phase, "cancelled").Inc()
		return
	case err != nil:
		m.Batches.WithLabelValues(phase, "failed").Inc()
		return
	}
	m.Batches.WithLabelValues(phase, "ok").Inc()
	m.BatchRows.WithLabelValues(phase).Add(float64(rows))
}

// WriteFile dumps the registry in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
