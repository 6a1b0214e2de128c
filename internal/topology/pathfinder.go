package topology

import (
	"context"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

// DefaultMaxDepth bounds path searches when no depth is given.
const DefaultMaxDepth = 10

// FindPath runs a breadth-first search over g following only the given
// relationship kinds (model.DefaultPathKinds when empty). It returns the
// shortest path in hops, ties going to the first path discovered in level
// order. An absent endpoint, or no path within maxDepth hops, gives an
// empty path. start == end gives a zero-length path holding only start.
func FindPath(g *model.ConnectivityGraph, start, end string, kinds []model.RelationshipKind, maxDepth int) model.Path {
	startNode, ok := g.Nodes[start]
	if !ok {
		return model.Path{}
	}
	if _, ok := g.Nodes[end]; !ok {
		return model.Path{}
	}
	if start == end {
		return model.Path{Hops: []model.Hop{{Node: startNode}}}
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if len(kinds) == 0 {
		kinds = model.DefaultPathKinds
	}
	allowed := make(map[model.RelationshipKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}

	prev := map[string]string{start: ""}
	via := map[string]model.RelationshipKind{}
	frontier := []string{start}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, e := range g.Neighbors(id, allowed) {
				if _, seen := prev[e.Target]; seen {
					continue
				}
				if _, isNode := g.Nodes[e.Target]; !isNode {
					continue
				}
				prev[e.Target] = id
				via[e.Target] = e.Kind
				if e.Target == end {
					return unwind(g, prev, via, start, end)
				}
				next = append(next, e.Target)
			}
		}
		frontier = next
	}
	return model.Path{}
}

func unwind(g *model.ConnectivityGraph, prev map[string]string, via map[string]model.RelationshipKind, start, end string) model.Path {
	var rev []model.Hop
	for id := end; id != start; id = prev[id] {
		rev = append(rev, model.Hop{Node: g.Nodes[id], Kind: via[id]})
	}
	rev = append(rev, model.Hop{Node: g.Nodes[start]})
	hops := make([]model.Hop, len(rev))
	for i, h := range rev {
		hops[len(rev)-1-i] = h
	}
	return model.Path{Hops: hops}
}

// FindPath assembles the session graph if needed and searches it.
func (s *Session) FindPath(ctx context.Context, start, end string, kinds []model.RelationshipKind, maxDepth int) (model.Path, error) {
	g, err := s.Assemble(ctx)
	if err != nil {
		return model.Path{}, err
	}
	return FindPath(g, start, end, kinds, maxDepth), nil
}
