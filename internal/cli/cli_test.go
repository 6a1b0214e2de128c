package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/config"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/database/bunstore"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/observability"
)

// Three spaces in a row joined by two doors.
const suiteModel = `{
  "elements": [
    {"id": "S1", "type": "IfcSpace", "name": "Hall"},
    {"id": "S2", "type": "IfcSpace", "name": "Corridor"},
    {"id": "S3", "type": "IfcSpace", "name": "Office"},
    {"id": "D1", "type": "IfcDoor"},
    {"id": "D2", "type": "IfcDoor"}
  ],
  "spaceBoundaries": [
    {"space": "S1", "element": "D1"},
    {"space": "S2", "element": "D1"},
    {"space": "S2", "element": "D2"},
    {"space": "S3", "element": "D2"}
  ]
}`

type fakeGraph struct {
	mu          sync.Mutex
	labels      []string
	nodes       map[string]bool
	edges       map[string]bool
	rows        []map[string]any
	queries     []string
	path        model.Path
	pathQueries int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: map[string]bool{}, edges: map[string]bool{}}
}

func (f *fakeGraph) EnsureConstraints(_ context.Context, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, labels...)
	return nil
}

func (f *fakeGraph) MergeNodes(_ context.Context, b repository.NodeBatch) (repository.WriteCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.WriteCounters
	for _, r := range b.Rows {
		if !f.nodes[r.GlobalID] {
			f.nodes[r.GlobalID] = true
			c.NodesCreated++
		}
	}
	return c, nil
}

func (f *fakeGraph) MergeEdges(_ context.Context, b repository.EdgeBatch) (repository.WriteCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.WriteCounters
	for _, r := range b.Rows {
		key := r.Source + "-" + b.Type + "->" + r.Target
		if !f.edges[key] {
			f.edges[key] = true
			c.RelationshipsCreated++
		}
	}
	return c, nil
}

func (f *fakeGraph) ClearTopological(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.edges))
	f.edges = map[string]bool{}
	return n, nil
}

func (f *fakeGraph) Counts(context.Context) (repository.GraphCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return repository.GraphCounts{Nodes: int64(len(f.nodes)), Relationships: int64(len(f.edges))}, nil
}

func (f *fakeGraph) FetchSchema(context.Context) (repository.GraphSchema, error) {
	return repository.GraphSchema{Labels: []string{"Element", "IfcSpace", "Zone"}, RelationshipTypes: []string{"CONNECTS", "SERVES"}}, nil
}

func (f *fakeGraph) RunReadQuery(_ context.Context, cypher string, _ map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, cypher)
	return f.rows, nil
}

func (f *fakeGraph) FindPath(context.Context, string, string, []model.RelationshipKind, int) (model.Path, error) {
	f.pathQueries++
	return f.path, nil
}

type stubLLM struct{ resp string }

func (s stubLLM) Generate(context.Context, string) (string, error) { return s.resp, nil }
func (s stubLLM) Name() string { return "stub" }

type stubRouter struct{ cypher, answer repository.LLMClient }

func (r stubRouter) RouteLLMTask(task repository.TaskType) repository.LLMClient {
	if task == repository.TaskCypher {
		return r.cypher
	}
	return r.answer
}

type harness struct {
	graph  *fakeGraph
	runs   *bunstore.BunStore
	router repository.LLMRouter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("IFCGRAPH_LOGGER_LEVEL", "error")
	t.Setenv("IFCGRAPH_LLM_USE_LOCAL_ONLY", "true")
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	runs, err := bunstore.Open(context.Background(), "file:"+filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runs.Close() })

	return &harness{graph: newFakeGraph(), runs: runs}
}

func (h *harness) providers() Providers {
	return Providers{
		Graph: func(context.Context, config.Neo4jConfig, *zap.Logger) (GraphBackend, func(), error) {
			return h.graph, func() {}, nil
		},
		Runs: func(context.Context, config.StoreConfig) (database.RunRepository, func(), error) {
			return h.runs, func() {}, nil
		},
		LLM: func(context.Context, config.LLMConfig, *zap.Logger) (repository.LLMRouter, func(), error) {
			return h.router, func() {}, nil
		},
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(h.providers())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(suiteModel), 0o600))
	return path
}

func decode(t *testing.T, out string, v any) {
	t.Helper()
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(out), v))
}

func TestAnalyzeCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "analyze", writeModel(t), "--structural-only", "--graph")
	require.NoError(t, err)

	var got struct {
		Parser struct {
			Elements int `json:"elements"`
		} `json:"parser"`
		Report struct {
			Nodes           int            `json:"nodes"`
			Edges           int            `json:"edges"`
			EdgesByKind     map[string]int `json:"edges_by_kind"`
			KernelAvailable bool           `json:"kernel_available"`
		} `json:"report"`
		Nodes []model.Node `json:"nodes"`
	}
	decode(t, out, &got)
	assert.Equal(t, 5, got.Report.Nodes)
	assert.Equal(t, 12, got.Report.Edges)
	assert.Equal(t, 4, got.Report.EdgesByKind["CONNECTS"])
	assert.False(t, got.Report.KernelAvailable)
	require.Len(t, got.Nodes, 5)
	assert.Equal(t, "D1", got.Nodes[0].ID)
}

func TestAnalyzeMissingFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "analyze", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAnalyzeRejectsBadTolerance(t *testing.T) {
	h := newHarness(t)
	t.Setenv("IFCGRAPH_ANALYSIS_TOLERANCE", "-1")
	_, err := h.run(t, "analyze", writeModel(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tolerance")
}

func TestPathCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "path", writeModel(t), "S1", "S3", "--structural-only", "--kinds", "CONNECTS")
	require.NoError(t, err)

	var p model.Path
	decode(t, out, &p)
	assert.Equal(t, []string{"S1", "S2", "S3"}, p.IDs())
	assert.Zero(t, h.graph.pathQueries)
}

func TestPathCommandUnknownKind(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "path", writeModel(t), "S1", "S3", "--kinds", "NEXT_TO")
	assert.ErrorContains(t, err, "unknown relationship kind")
}

func TestPathCommandFromDatabase(t *testing.T) {
	h := newHarness(t)
	h.graph.path = model.Path{Hops: []model.Hop{
		{Node: model.Node{ID: "S1"}},
		{Node: model.Node{ID: "S2"}, Kind: model.KindConnects},
	}}

	out, err := h.run(t, "path", "--db", "S1", "S2")
	require.NoError(t, err)
	var p model.Path
	decode(t, out, &p)
	assert.Equal(t, []string{"S1", "S2"}, p.IDs())
	assert.Equal(t, 1, h.graph.pathQueries)

	_, err = h.run(t, "path", "--db", "S1")
	assert.Error(t, err)
}

func TestIngestAndRunsCommands(t *testing.T) {
	h := newHarness(t)
	path := writeModel(t)

	out, err := h.run(t, "ingest", path, "--structural-only")
	require.NoError(t, err)
	var ingested struct {
		Run struct {
			RunID  string
			Status int
		} `json:"run"`
		Counts repository.GraphCounts `json:"counts"`
	}
	decode(t, out, &ingested)
	assert.NotEmpty(t, ingested.Run.RunID)
	assert.Equal(t, 5, int(ingested.Counts.Nodes))
	assert.Equal(t, 12, int(ingested.Counts.Relationships))
	assert.Contains(t, h.graph.labels, "IfcSpace")

	_, err = h.run(t, "ingest", path, "--structural-only", "--clear")
	require.NoError(t, err)

	out, err = h.run(t, "runs", "--status", "completed")
	require.NoError(t, err)
	var listed []struct {
		RunID      string
		StatusName string `json:"status_name"`
	}
	decode(t, out, &listed)
	require.Len(t, listed, 2)
	for _, r := range listed {
		assert.Equal(t, "completed", r.StatusName)
	}

	out, err = h.run(t, "runs", ingested.Run.RunID)
	require.NoError(t, err)
	var one []struct {
		RunID string
		Steps []struct{ Phase int }
	}
	decode(t, out, &one)
	require.Len(t, one, 1)
	assert.Equal(t, ingested.Run.RunID, one[0].RunID)
	assert.Len(t, one[0].Steps, 3)
}

func TestIngestWritesMetricsFile(t *testing.T) {
	h := newHarness(t)
	metrics := filepath.Join(t.TempDir(), "ifcgraph.prom")

	_, err := h.run(t, "ingest", writeModel(t), "--structural-only", "--metrics-file", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `ifcgraph_analysis_phase_duration_seconds_count{phase="boundary"} 1`)
	assert.Contains(t, text, `ifcgraph_ingest_batches_total{outcome="ok",phase="nodes"}`)
	assert.Contains(t, text, `ifcgraph_ingest_rows_total{phase="edges"} 12`)
}

func TestRunsRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "runs", "--status", "stuck")
	assert.ErrorContains(t, err, "unknown run status")
}

func TestIngestRejectsConcurrencyAbovePool(t *testing.T) {
	h := newHarness(t)
	t.Setenv("IFCGRAPH_INGEST_CONCURRENCY", "32")
	_, err := h.run(t, "ingest", writeModel(t))
	assert.ErrorContains(t, err, "connection pool size")
}

func TestSchemaCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "CONNECTS")

	out, err = h.run(t, "schema", "--live")
	require.NoError(t, err)
	assert.Contains(t, out, "SERVES")
	assert.Contains(t, out, "Zone")
}

func TestAskCommand(t *testing.T) {
	h := newHarness(t)
	h.router = stubRouter{
		cypher: stubLLM{resp: "```cypher\nMATCH (s:IfcSpace) RETURN s.Name AS name\n```"},
		answer: stubLLM{resp: "There are three spaces."},
	}
	h.graph.rows = []map[string]any{{"name": "Hall"}, {"name": "Corridor"}, {"name": "Office"}}

	out, err := h.run(t, "ask", "Which spaces are there?")
	require.NoError(t, err)
	require.Len(t, h.graph.queries, 1)
	assert.True(t, strings.HasPrefix(h.graph.queries[0], "MATCH (s:IfcSpace)"))
	assert.Contains(t, out, "There are three spaces.")

	out, err = h.run(t, "ask", "--cypher-only", "Which spaces are there?")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (s:IfcSpace) RETURN s.Name AS name\n", out)
	assert.Len(t, h.graph.queries, 1)
}

func TestAskRejectsWrites(t *testing.T) {
	h := newHarness(t)
	h.router = stubRouter{cypher: stubLLM{resp: "MATCH (n) DETACH DELETE n"}}

	_, err := h.run(t, "ask", "Delete everything")
	assert.Error(t, err)
	assert.Empty(t, h.graph.queries)
}
