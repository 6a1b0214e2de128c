package topology

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

// Assemble unions the detector results into the connectivity graph. The
// graph is built once and reused until the session is invalidated.
func (s *Session) Assemble(ctx context.Context) (*model.ConnectivityGraph, error) {
	if s.graph != nil {
		return s.graph, nil
	}
	adjacency, err := s.DetectAdjacency(ctx, s.tol)
	if err != nil {
		return nil, err
	}
	containment, err := s.DetectContainment(ctx, s.tol)
	if err != nil {
		return nil, err
	}
	boundaries, err := s.DetectSpaceBoundaries(ctx)
	if err != nil {
		return nil, err
	}

	b := newGraphBuilder(s.model)
	for _, src := range adjacency.Sources() {
		for _, dst := range adjacency.Targets(src) {
			p, _ := adjacency.Provenance(src, dst)
			b.add(src, dst, model.KindAdjacent, p, map[string]any{
				"relationshipType":  "adjacency",
				"distanceTolerance": s.tol,
			})
		}
	}
	for _, src := range containment.Sources() {
		for _, dst := range containment.Targets(src) {
			p, _ := containment.Provenance(src, dst)
			b.add(src, dst, model.KindContains, p, map[string]any{
				"relationshipType":  "containment",
				"containmentType":   "full",
				"distanceTolerance": s.tol,
			})
		}
	}
	for _, space := range boundaries.Sources() {
		for _, el := range boundaries.Targets(space) {
			p, _ := boundaries.Provenance(space, el)
			b.add(el, space, model.KindBounds, p, map[string]any{
				"relationshipType": "spaceBoundary",
				"boundaryType":     "physical",
			})
		}
	}
	s.connectSpaces(b, boundaries)

	g := model.NewConnectivityGraph(b.nodes, b.edges)
	s.graph = g
	s.dropped = b.dropped
	s.logger.Debug("Graph assembled",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Int("dropped_pairs", b.dropped))
	return g, nil
}

// connectSpaces links every pair of spaces bounded by the same door or
// window.
func (s *Session) connectSpaces(b *graphBuilder, boundaries *RelationSet) {
	type bounding struct {
		space string
		prov  model.Provenance
	}
	byOpening := map[string][]bounding{}
	for _, space := range boundaries.Sources() {
		for _, el := range boundaries.Targets(space) {
			t := s.model.TypeOf(el)
			if t != model.TypeDoor && t != model.TypeWindow {
				continue
			}
			p, _ := boundaries.Provenance(space, el)
			byOpening[el] = append(byOpening[el], bounding{space: space, prov: p})
		}
	}
	openings := make([]string, 0, len(byOpening))
	for id := range byOpening {
		openings = append(openings, id)
	}
	sort.Strings(openings)

	for _, via := range openings {
		spaces := byOpening[via]
		for i := range spaces {
			for j := i + 1; j < len(spaces); j++ {
				p := model.ProvenanceStructural
				if spaces[i].prov == model.ProvenanceGeometric || spaces[j].prov == model.ProvenanceGeometric {
					p = model.ProvenanceGeometric
				}
				b.add(spaces[i].space, spaces[j].space, model.KindConnects, p, map[string]any{
					"relationshipType": "connectivity",
					"via":              via,
					"viaType":          string(s.model.TypeOf(via)),
				})
			}
		}
	}
}

// graphBuilder accumulates edges in companion pairs so the pairing
// invariants hold by construction.
type graphBuilder struct {
	nodes   map[string]model.Node
	edges   []model.Relationship
	seen    map[model.RelationshipKey]bool
	dropped int
}

func newGraphBuilder(m *model.Model) *graphBuilder {
	b := &graphBuilder{
		nodes: make(map[string]model.Node),
		seen:  make(map[model.RelationshipKey]bool),
	}
	for _, el := range m.Elements {
		if el.Type.IsSignificant() {
			b.nodes[el.ID] = model.NewNode(el)
		}
	}
	return b
}

// add records source -> target with kind and its companion edge. Pairs
// touching a non-node endpoint are dropped together.
func (b *graphBuilder) add(source, target string, kind model.RelationshipKind, p model.Provenance, props map[string]any) {
	if source == target {
		return
	}
	_, okS := b.nodes[source]
	_, okT := b.nodes[target]
	if !okS || !okT {
		b.dropped++
		return
	}
	forward := model.RelationshipKey{Source: source, Target: target, Kind: kind}
	reverse := forward.Reverse()
	if b.seen[forward] && b.seen[reverse] {
		return
	}
	for _, key := range []model.RelationshipKey{forward, reverse} {
		if b.seen[key] {
			continue
		}
		b.seen[key] = true
		b.edges = append(b.edges, model.Relationship{
			Source:     key.Source,
			Target:     key.Target,
			Kind:       key.Kind,
			Provenance: p,
			Properties: edgeProperties(p, props),
		})
	}
}

func edgeProperties(p model.Provenance, props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+2)
	for k, v := range props {
		out[k] = v
	}
	out["relationshipSource"] = model.SourceTopologicalAnalysis
	out["provenance"] = string(p)
	return out
}
