package topology

import (
	"context"
	"sort"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

type kindPair struct{ a, b Kind }

// DetectAdjacency returns the symmetric adjacency relation at tol. Results
// are cached per tolerance. A cancelled pass returns ctx.Err() and caches
// nothing.
func (s *Session) DetectAdjacency(ctx context.Context, tol float64) (*RelationSet, error) {
	if rs, ok := s.adjacency[tol]; ok {
		return rs, nil
	}
	candidates := s.buildingElements()
	handles := s.handles(candidates)

	rs, err := s.runStrategies(ctx, "adjacency", []strategy{
		{
			name: "geometric",
			when: func(*RelationSet) bool { return len(handles) >= MinGeometricResults },
			run: func(ctx context.Context, acc *RelationSet) error {
				return s.geometricAdjacency(ctx, handles, tol, acc)
			},
		},
		{
			name: "structural",
			when: func(acc *RelationSet) bool {
				return len(handles) < MinGeometricResults || acc.CountBy(model.ProvenanceGeometric) < MinGeometricResults
			},
			run: s.sharedSpaceAdjacency,
		},
		{
			name: "openings",
			run:  s.openingAdjacency,
		},
	})
	if err != nil {
		return nil, err
	}
	s.adjacency[tol] = rs
	return rs, nil
}

// geometricAdjacency compares every pair of handles whose bounding boxes
// overlap. Handles are swept along x so that only overlapping candidates
// reach the kernel predicates.
func (s *Session) geometricAdjacency(ctx context.Context, handles []*Handle, tol float64, acc *RelationSet) error {
	sorted := append([]*Handle(nil), handles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].bounds.Min.X < sorted[j].bounds.Min.X
	})

	found := newRelationSet()
	for i, a := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, b := range sorted[i+1:] {
			if b.bounds.Min.X-tol > a.bounds.Max.X {
				break
			}
			if a.ElementID == b.ElementID || !a.bounds.Intersects(b.bounds, tol) {
				continue
			}
			if s.guard(a.ElementID, b.ElementID, func() bool { return s.touching(a, b, tol) }) {
				found.AddSymmetric(a.ElementID, b.ElementID, model.ProvenanceGeometric)
			}
		}
	}
	merge(acc, found)
	return nil
}

// touching dispatches the adjacency predicate on the handle kinds.
func (s *Session) touching(a, b *Handle, tol float64) bool {
	k := s.kernel
	switch (kindPair{a.Kind, b.Kind}) {
	case kindPair{KindCell, KindCell}:
		return k.SharedFaces(a.Cell, b.Cell, tol) > 0
	case kindPair{KindCell, KindFace}:
		return s.cellHasFace(a, b, tol)
	case kindPair{KindFace, KindCell}:
		return s.cellHasFace(b, a, tol)
	case kindPair{KindFace, KindFace}:
		return k.SharedEdges(a.Face, b.Face, tol) > 0
	case kindPair{KindEdge, KindEdge}, kindPair{KindEdge, KindCluster},
		kindPair{KindCluster, KindEdge}, kindPair{KindCluster, KindCluster}:
		return k.SharedVertices(a.Vertices(), b.Vertices(), tol) > 0
	case kindPair{KindEdge, KindCell}, kindPair{KindEdge, KindFace},
		kindPair{KindCluster, KindCell}, kindPair{KindCluster, KindFace}:
		return s.curveOnBoundary(a, b, tol)
	case kindPair{KindCell, KindEdge}, kindPair{KindFace, KindEdge},
		kindPair{KindCell, KindCluster}, kindPair{KindFace, KindCluster}:
		return s.curveOnBoundary(b, a, tol)
	}
	return false
}

// cellHasFace reports whether the face handle lies on one of the cell's
// faces, either matching it or covering part of it.
func (s *Session) cellHasFace(cell, face *Handle, tol float64) bool {
	for _, f := range cell.Cell.Faces {
		if s.kernel.IsSameFace(f, face.Face, tol) || s.kernel.FacesOverlap(f, face.Face, tol) {
			return true
		}
	}
	return false
}

// curveOnBoundary reports whether any segment of the curve handle runs
// along a boundary edge of other.
func (s *Session) curveOnBoundary(curve, other *Handle, tol float64) bool {
	boundary := other.Edges()
	for _, e := range curve.Edges() {
		for _, be := range boundary {
			if s.kernel.EdgesOverlap(e, be, tol) {
				return true
			}
		}
	}
	return false
}

// sharedSpaceAdjacency makes two walls adjacent when they share a space,
// either through space containment or through explicit space boundaries.
func (s *Session) sharedSpaceAdjacency(_ context.Context, acc *RelationSet) error {
	wallsBySpace := map[string][]string{}
	var spaces []string
	addWall := func(space, wall string) {
		if s.model.TypeOf(space) != model.TypeSpace {
			return
		}
		list, ok := wallsBySpace[space]
		if !ok {
			spaces = append(spaces, space)
		}
		for _, w := range list {
			if w == wall {
				return
			}
		}
		wallsBySpace[space] = append(list, wall)
	}
	for _, wall := range s.model.ElementsOfType(model.TypeWall) {
		for _, c := range s.model.ContainersOf(wall.ID) {
			addWall(c, wall.ID)
		}
	}
	for _, b := range s.model.SpaceBoundaries {
		if s.model.TypeOf(b.ElementID) == model.TypeWall {
			addWall(b.SpaceID, b.ElementID)
		}
	}
	for _, space := range spaces {
		walls := wallsBySpace[space]
		for i := range walls {
			for j := i + 1; j < len(walls); j++ {
				acc.AddSymmetric(walls[i], walls[j], model.ProvenanceStructural)
			}
		}
	}
	return nil
}

// openingAdjacency links doors and windows to the walls they fill.
func (s *Session) openingAdjacency(_ context.Context, acc *RelationSet) error {
	for _, el := range s.model.ElementsOfType(model.TypeDoor, model.TypeWindow) {
		for _, host := range s.model.HostsOf(el.ID) {
			if s.model.TypeOf(host) == model.TypeWall {
				acc.AddSymmetric(el.ID, host, model.ProvenanceStructural)
			}
		}
	}
	return nil
}

// buildingElements returns the physical elements, excluding the spatial
// structure.
func (s *Session) buildingElements() []model.Element {
	var out []model.Element
	for _, el := range s.model.Elements {
		if !el.Type.IsSpatial() {
			out = append(out, el)
		}
	}
	return out
}

func merge(dst, src *RelationSet) {
	for _, source := range src.Sources() {
		for _, target := range src.Targets(source) {
			p, _ := src.Provenance(source, target)
			dst.Add(source, target, p)
		}
	}
}
