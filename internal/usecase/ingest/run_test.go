package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/bunstore"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/models"
)

func newRunStore(t *testing.T) *bunstore.BunStore {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	store, err := bunstore.NewBunStore(context.Background(), sqldb, sqlitedialect.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunner_Completed(t *testing.T) {
	ctx := context.Background()
	runs := newRunStore(t)
	graph := newFakeStore()
	r := NewRunner(NewWriter(graph, Options{BatchSize: 2, Concurrency: 2}, nil), runs, nil)

	run, stats, err := r.Run(ctx, testGraph(), RunOptions{ModelPath: "house.json"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 5, stats.Nodes.Written)

	stored, err := runs.GetRunByRunID(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Equal(t, models.PhaseEdges, stored.CurrentPhase)
	assert.Equal(t, 5, stored.Nodes)
	assert.Equal(t, 4, stored.Edges)
	assert.Equal(t, 5, stored.Version)
	assert.Equal(t, run.Version, stored.Version)

	steps, err := runs.GetRunSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, phase := range []models.IngestPhase{models.PhaseConstraints, models.PhaseNodes, models.PhaseEdges} {
		assert.Equal(t, phase, steps[i].Phase)
		assert.Equal(t, models.RunStatusCompleted, steps[i].Status)
	}
	assert.Equal(t, 3, steps[1].Batches)
	assert.Equal(t, 5, steps[1].Written)
}

func TestRunner_ClearPhase(t *testing.T) {
	ctx := context.Background()
	runs := newRunStore(t)
	graph := newFakeStore()
	r := NewRunner(NewWriter(graph, Options{}, nil), runs, nil)

	_, _, err := r.Run(ctx, testGraph(), RunOptions{ModelPath: "house.json"})
	require.NoError(t, err)

	run, stats, err := r.Run(ctx, testGraph(), RunOptions{ModelPath: "house.json", Clear: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Cleared)
	assert.Equal(t, 4, stats.Edges.Counters.RelationshipsCreated)

	steps, err := runs.GetRunSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, models.PhaseClear, steps[0].Phase)
	assert.Equal(t, 4, steps[0].Written)
}

func TestRunner_Failed(t *testing.T) {
	ctx := context.Background()
	runs := newRunStore(t)
	graph := newFakeStore()
	graph.failures["edges:ADJACENT"] = 2
	r := NewRunner(NewWriter(graph, Options{Concurrency: 1}, nil), runs, nil)

	run, _, err := r.Run(ctx, testGraph(), RunOptions{ModelPath: "house.json"})
	require.Error(t, err)
	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 5, be.Stats.Nodes.Written)

	stored, err := runs.GetRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.Equal(t, models.PhaseEdges, stored.CurrentPhase)
	assert.Contains(t, stored.ErrorMessage, "transient failure")
	assert.Equal(t, 5, stored.Nodes)

	steps, err := runs.GetRunSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, models.RunStatusFailed, steps[2].Status)
	assert.Equal(t, 1, steps[2].Retries)
	assert.NotEmpty(t, steps[2].ErrorLog)

	failed := models.RunStatusFailed
	listed, err := runs.ListRuns(ctx, database.RunFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, run.RunID, listed[0].RunID)
}
