package topology

import (
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/geometry"
)

// Kind is the geometric form of a handle.
type Kind int

const (
	KindCell Kind = iota + 1
	KindFace
	KindEdge
	KindCluster
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "cell"
	case KindFace:
		return "face"
	case KindEdge:
		return "edge"
	case KindCluster:
		return "cluster"
	}
	return "unknown"
}

// Handle is the cached geometric form of one element. Exactly one of Cell,
// Face, Edge or Cluster is set, as indicated by Kind. Handles are never
// mutated after creation.
type Handle struct {
	Kind        Kind
	ElementID   string
	ElementType model.ElementType

	Cell    *geometry.Cell
	Face    *geometry.Face
	Edge    *geometry.Edge
	Cluster []geometry.Edge

	bounds geometry.Box
}

func newCellHandle(el model.Element, c *geometry.Cell) *Handle {
	return &Handle{Kind: KindCell, ElementID: el.ID, ElementType: el.Type, Cell: c, bounds: c.Bounds()}
}

func newFaceHandle(el model.Element, f *geometry.Face) *Handle {
	return &Handle{Kind: KindFace, ElementID: el.ID, ElementType: el.Type, Face: f, bounds: f.Bounds()}
}

func newEdgeHandle(el model.Element, e *geometry.Edge) *Handle {
	return &Handle{Kind: KindEdge, ElementID: el.ID, ElementType: el.Type, Edge: e, bounds: e.Bounds()}
}

func newClusterHandle(el model.Element, edges []geometry.Edge) *Handle {
	b := geometry.Box{}
	for _, e := range edges {
		b = b.Union(e.Bounds())
	}
	return &Handle{Kind: KindCluster, ElementID: el.ID, ElementType: el.Type, Cluster: edges, bounds: b}
}

// Bounds returns the bounding box of the handle geometry.
func (h *Handle) Bounds() geometry.Box { return h.bounds }

// Edges returns the curve segments of an edge or cluster handle, or the
// boundary segments of a face or cell handle.
func (h *Handle) Edges() []geometry.Edge {
	switch h.Kind {
	case KindCell:
		return h.Cell.Edges()
	case KindFace:
		return h.Face.Edges()
	case KindEdge:
		return []geometry.Edge{*h.Edge}
	case KindCluster:
		return h.Cluster
	}
	return nil
}

// Vertices returns every vertex of the handle, duplicates included.
func (h *Handle) Vertices() []geometry.Point {
	switch h.Kind {
	case KindCell:
		return h.Cell.Vertices()
	case KindFace:
		return append([]geometry.Point(nil), h.Face.Loop...)
	case KindEdge, KindCluster:
		var pts []geometry.Point
		for _, e := range h.Edges() {
			pts = append(pts, e.Start, e.End)
		}
		return pts
	}
	return nil
}

