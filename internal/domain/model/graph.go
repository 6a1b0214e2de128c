package model

import (
	"errors"
	"fmt"
	"sort"
)

// Node is the graph-facing metadata of an element.
type Node struct {
	ID     string      `json:"id"`
	Type   ElementType `json:"type"`
	Name   string      `json:"name,omitempty"`
	Labels []string    `json:"labels"`
}

// NewNode builds the node for an element.
func NewNode(el Element) Node {
	return Node{ID: el.ID, Type: el.Type, Name: el.Name, Labels: el.Type.Labels()}
}

// PrimaryLabel is the label carrying the uniqueness constraint.
func (n Node) PrimaryLabel() string {
	if len(n.Labels) == 0 {
		return string(n.Type)
	}
	return n.Labels[0]
}

// ConnectivityGraph is the assembled relationship graph of one analysis pass.
// It is immutable once built.
type ConnectivityGraph struct {
	Nodes map[string]Node
	Edges []Relationship

	out map[string][]int
}

// NewConnectivityGraph indexes nodes and edges. Edges are sorted by
// (source, kind, target) so traversal order is deterministic.
func NewConnectivityGraph(nodes map[string]Node, edges []Relationship) *ConnectivityGraph {
	sorted := make([]Relationship, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Target < b.Target
	})
	g := &ConnectivityGraph{Nodes: nodes, Edges: sorted, out: make(map[string][]int, len(nodes))}
	for i, e := range sorted {
		g.out[e.Source] = append(g.out[e.Source], i)
	}
	return g
}

// Neighbors returns the outgoing edges of id restricted to kinds. An empty
// kinds slice allows every kind.
func (g *ConnectivityGraph) Neighbors(id string, kinds map[RelationshipKind]bool) []Relationship {
	var out []Relationship
	for _, i := range g.out[id] {
		e := g.Edges[i]
		if len(kinds) == 0 || kinds[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

// CountByKind returns the number of edges per relationship kind.
func (g *ConnectivityGraph) CountByKind() map[RelationshipKind]int {
	counts := make(map[RelationshipKind]int, len(AllKinds))
	for _, e := range g.Edges {
		counts[e.Kind]++
	}
	return counts
}

// Validate checks the pairing invariants: symmetric kinds exist in both
// directions, inverse kinds always come in pairs and no edge is a self loop.
func (g *ConnectivityGraph) Validate() error {
	keys := make(map[RelationshipKey]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		keys[e.Key()] = struct{}{}
	}
	var errs []error
	for _, e := range g.Edges {
		if e.Source == e.Target {
			errs = append(errs, fmt.Errorf("self relationship %s on %s", e.Kind, e.Source))
			continue
		}
		if _, ok := keys[e.Key().Reverse()]; !ok {
			errs = append(errs, fmt.Errorf("%s %s->%s has no %s companion", e.Kind, e.Source, e.Target, e.Kind.Inverse()))
		}
	}
	return errors.Join(errs...)
}

// Hop is one step of a path: the node reached and the kind of the edge that
// reached it. The first hop has an empty kind.
type Hop struct {
	Node Node             `json:"node"`
	Kind RelationshipKind `json:"kind,omitempty"`
}

// Path is an ordered walk through the graph. An empty path means no path.
type Path struct {
	Hops []Hop `json:"hops"`
}

// Found reports whether a path exists.
func (p Path) Found() bool { return len(p.Hops) > 0 }

// Len returns the number of edges traversed.
func (p Path) Len() int {
	if len(p.Hops) == 0 {
		return 0
	}
	return len(p.Hops) - 1
}

// IDs returns the node ids along the path.
func (p Path) IDs() []string {
	ids := make([]string, len(p.Hops))
	for i, h := range p.Hops {
		ids[i] = h.Node.ID
	}
	return ids
}
