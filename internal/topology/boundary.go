package topology

import (
	"context"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

var boundaryTypes = []model.ElementType{
	model.TypeWall, model.TypeSlab, model.TypeRoof, model.TypeDoor, model.TypeWindow,
}

// DetectSpaceBoundaries returns space -> bounding element relations. The
// result is computed once per session at the session tolerance.
func (s *Session) DetectSpaceBoundaries(ctx context.Context) (*RelationSet, error) {
	if s.boundaries != nil {
		return s.boundaries, nil
	}
	rs, err := s.runStrategies(ctx, "boundary", []strategy{
		{name: "explicit", run: s.explicitBoundaries},
		{
			name: "geometric",
			when: func(acc *RelationSet) bool {
				return s.kernel != nil && acc.Len() < MinGeometricResults
			},
			run: s.geometricBoundaries,
		},
	})
	if err != nil {
		return nil, err
	}
	s.boundaries = rs
	return rs, nil
}

func (s *Session) explicitBoundaries(_ context.Context, acc *RelationSet) error {
	for _, b := range s.model.SpaceBoundaries {
		if s.model.TypeOf(b.SpaceID) != model.TypeSpace {
			continue
		}
		el, ok := s.model.Element(b.ElementID)
		if !ok || el.Type.IsSpatial() {
			continue
		}
		acc.Add(b.SpaceID, b.ElementID, model.ProvenanceStructural)
	}
	return nil
}

// geometricBoundaries tests each space volume against the candidate
// elements for a shared face.
func (s *Session) geometricBoundaries(ctx context.Context, acc *RelationSet) error {
	candidates := s.handles(s.model.ElementsOfType(boundaryTypes...))
	for _, space := range s.model.ElementsOfType(model.TypeSpace) {
		if err := ctx.Err(); err != nil {
			return err
		}
		sh := s.cache.Convert(space).Handle
		if sh == nil || sh.Kind != KindCell {
			continue
		}
		for _, ch := range candidates {
			if acc.Has(space.ID, ch.ElementID) || !sh.bounds.Intersects(ch.bounds, s.tol) {
				continue
			}
			var bounded bool
			switch ch.Kind {
			case KindCell:
				bounded = s.guard(space.ID, ch.ElementID, func() bool {
					return s.kernel.SharedFaces(sh.Cell, ch.Cell, s.tol) > 0
				})
			case KindFace:
				bounded = s.guard(space.ID, ch.ElementID, func() bool {
					return s.cellHasFace(sh, ch, s.tol)
				})
			}
			if bounded {
				acc.Add(space.ID, ch.ElementID, model.ProvenanceGeometric)
			}
		}
	}
	return nil
}
