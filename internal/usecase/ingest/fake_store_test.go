package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/repository"
)

var errBoom = errors.New("transient failure")

// fakeStore is an in-memory GraphStore with MERGE semantics.
type fakeStore struct {
	mu          sync.Mutex
	nodes       map[string][]string
	edges       map[string]map[string]any
	constraints []string
	calls       []string
	// failures maps "nodes:<label>" or "edges:<type>" to the number of
	// calls that should fail before succeeding.
	failures map[string]int
	cleared  int64
	delay    time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:    map[string][]string{},
		edges:    map[string]map[string]any{},
		failures: map[string]int{},
	}
}

func (f *fakeStore) enter(ctx context.Context, call string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := f.inflight.Add(1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failures[call] > 0 {
		f.failures[call]--
		return errBoom
	}
	return nil
}

func (f *fakeStore) leave() { f.inflight.Add(-1) }

func (f *fakeStore) EnsureConstraints(ctx context.Context, labels []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constraints = append([]string(nil), labels...)
	return nil
}

func (f *fakeStore) MergeNodes(ctx context.Context, batch repository.NodeBatch) (repository.WriteCounters, error) {
	defer f.leave()
	if err := f.enter(ctx, "nodes:"+batch.Labels[0]); err != nil {
		return repository.WriteCounters{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.WriteCounters
	for _, r := range batch.Rows {
		if _, ok := f.nodes[r.GlobalID]; !ok {
			c.NodesCreated++
			c.LabelsAdded += len(batch.Labels)
		}
		f.nodes[r.GlobalID] = batch.Labels
		c.PropertiesSet += 2
	}
	return c, nil
}

func (f *fakeStore) MergeEdges(ctx context.Context, batch repository.EdgeBatch) (repository.WriteCounters, error) {
	defer f.leave()
	if err := f.enter(ctx, "edges:"+batch.Type); err != nil {
		return repository.WriteCounters{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.WriteCounters
	for _, r := range batch.Rows {
		_, okS := f.nodes[r.Source]
		_, okT := f.nodes[r.Target]
		if !okS || !okT {
			continue
		}
		key := r.Source + "|" + batch.Type + "|" + r.Target
		if _, ok := f.edges[key]; !ok {
			c.RelationshipsCreated++
			f.edges[key] = map[string]any{}
		}
		for k, v := range r.Properties {
			f.edges[key][k] = v
		}
	}
	return c, nil
}

func (f *fakeStore) ClearTopological(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.edges))
	f.edges = map[string]map[string]any{}
	f.cleared += n
	return n, nil
}

func (f *fakeStore) Counts(context.Context) (repository.GraphCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return repository.GraphCounts{Nodes: int64(len(f.nodes)), Relationships: int64(len(f.edges))}, nil
}

func (f *fakeStore) callKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		if len(c) >= 5 && c[:5] == "nodes" {
			out[i] = "nodes"
		} else {
			out[i] = "edges"
		}
	}
	return out
}

func rel(src, dst string, kind model.RelationshipKind) model.Relationship {
	return model.Relationship{
		Source:     src,
		Target:     dst,
		Kind:       kind,
		Provenance: model.ProvenanceStructural,
		Properties: map[string]any{"relationshipSource": model.SourceTopologicalAnalysis},
	}
}

// testGraph has three spaces, two walls and four edges.
func testGraph() *model.ConnectivityGraph {
	nodes := map[string]model.Node{}
	for _, el := range []model.Element{
		{ID: "S1", Type: model.TypeSpace, Name: "Kitchen"},
		{ID: "S2", Type: model.TypeSpace, Name: "Hall"},
		{ID: "S3", Type: model.TypeSpace, Name: "Bath"},
		{ID: "W1", Type: model.TypeWall},
		{ID: "W2", Type: model.TypeWall},
	} {
		nodes[el.ID] = model.NewNode(el)
	}
	return model.NewConnectivityGraph(nodes, []model.Relationship{
		rel("W1", "W2", model.KindAdjacent),
		rel("W2", "W1", model.KindAdjacent),
		rel("W1", "S1", model.KindBounds),
		rel("S1", "W1", model.KindIsBoundedBy),
	})
}
