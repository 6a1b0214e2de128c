package repository

import (
	"context"
)

// NodeRow is one node to MERGE on its GlobalId.
type NodeRow struct {
	GlobalID string
	Name     string
	IFCType  string
}

// NodeBatch is a group of nodes sharing the same labels. The first label is
// the primary one carrying the GlobalId uniqueness constraint.
type NodeBatch struct {
	Labels []string
	Rows   []NodeRow
}

// EdgeRow is one relationship to MERGE between two existing nodes.
type EdgeRow struct {
	Source     string
	Target     string
	Properties map[string]any
}

// EdgeBatch is a group of relationships of one type whose endpoints carry
// the same primary labels.
type EdgeBatch struct {
	Type        string
	SourceLabel string
	TargetLabel string
	Rows        []EdgeRow
}

// WriteCounters are the store-side effects of one write.
type WriteCounters struct {
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
	PropertiesSet        int `json:"properties_set"`
	LabelsAdded          int `json:"labels_added"`
}

// Add accumulates o into c.
func (c *WriteCounters) Add(o WriteCounters) {
	c.NodesCreated += o.NodesCreated
	c.RelationshipsCreated += o.RelationshipsCreated
	c.PropertiesSet += o.PropertiesSet
	c.LabelsAdded += o.LabelsAdded
}

// GraphCounts summarizes the content of the store.
type GraphCounts struct {
	Nodes         int64            `json:"nodes"`
	Relationships int64            `json:"relationships"`
	ByLabel       map[string]int64 `json:"by_label"`
	ByType        map[string]int64 `json:"by_type"`
}

// GraphStore defines the write side of the graph database used by ingestion.
type GraphStore interface {
	EnsureConstraints(ctx context.Context, labels []string) error
	MergeNodes(ctx context.Context, batch NodeBatch) (WriteCounters, error)
	MergeEdges(ctx context.Context, batch EdgeBatch) (WriteCounters, error)
	ClearTopological(ctx context.Context) (int64, error)
	Counts(ctx context.Context) (GraphCounts, error)
}

// GraphSchema is the live schema of the store.
type GraphSchema struct {
	Labels            []string `json:"labels"`
	RelationshipTypes []string `json:"relationship_types"`
	PropertyKeys      []string `json:"property_keys"`
}

// GraphReader defines the read side used by the query layer.
type GraphReader interface {
	FetchSchema(ctx context.Context) (GraphSchema, error)
	RunReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}
