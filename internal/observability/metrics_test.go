package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBatchOutcomes(t *testing.T) {
	m := NewMetrics()
	start := time.Now()

	m.ObserveBatch("nodes", start, 3, 0, nil)
	m.ObserveBatch("nodes", start, 2, 1, errors.New("boom"))
	m.ObserveBatch("nodes", start, 2, 0, context.Canceled)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches.WithLabelValues("nodes", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches.WithLabelValues("nodes", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches.WithLabelValues("nodes", "cancelled")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BatchRows.WithLabelValues("nodes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRetries.WithLabelValues("nodes")))
}

func TestAddRelationsIgnoresEmptyStrategies(t *testing.T) {
	m := NewMetrics()
	m.AddRelations("adjacency", "structural", 0)
	m.AddRelations("adjacency", "geometric", 4)

	assert.Equal(t, 1, testutil.CollectAndCount(m.StrategyRelations))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.StrategyRelations.WithLabelValues("adjacency", "geometric")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePhase("warm", time.Now())
		m.AddRelations("adjacency", "geometric", 1)
		m.ObserveBatch("edges", time.Now(), 1, 0, nil)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteFile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestWriteFile(t *testing.T) {
	m := NewMetrics()
	m.ObservePhase("adjacency", time.Now().Add(-time.Millisecond))
	path := filepath.Join(t.TempDir(), "ifcgraph.prom")

	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ifcgraph_analysis_phase_duration_seconds_count{phase="adjacency"} 1`)
}
