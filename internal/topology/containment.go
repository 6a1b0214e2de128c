package topology

import (
	"context"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

// DetectContainment returns container -> contained relations at tol,
// cached per tolerance.
func (s *Session) DetectContainment(ctx context.Context, tol float64) (*RelationSet, error) {
	if rs, ok := s.containment[tol]; ok {
		return rs, nil
	}
	rs, err := s.runStrategies(ctx, "containment", []strategy{
		{
			name: "pairwise",
			run: func(ctx context.Context, acc *RelationSet) error {
				return s.pairwiseContainment(ctx, tol, acc)
			},
		},
		{
			name: "structural",
			when: func(acc *RelationSet) bool {
				return acc.CountBy(model.ProvenanceGeometric) < MinGeometricResults
			},
			run: s.structuralContainment,
		},
	})
	if err != nil {
		return nil, err
	}
	s.containment[tol] = rs
	return rs, nil
}

// canContain reports whether el may act as a container.
func (s *Session) canContain(el model.Element) bool {
	switch el.Type {
	case model.TypeSpace, model.TypeBuilding, model.TypeStorey:
		return true
	case model.TypeSite:
		return false
	}
	h := s.cache.Convert(el).Handle
	return h != nil && h.Kind == KindCell
}

// canBeContained reports whether el may appear inside a container.
func canBeContained(el model.Element) bool {
	switch el.Type {
	case model.TypeBuilding, model.TypeStorey, model.TypeSite:
		return false
	}
	return true
}

// pairwiseContainment checks explicit membership first and falls back to
// volumetric inclusion of every vertex of the candidate.
func (s *Session) pairwiseContainment(ctx context.Context, tol float64, acc *RelationSet) error {
	var containers, candidates []model.Element
	for _, el := range s.model.Elements {
		if s.canContain(el) {
			containers = append(containers, el)
		}
		if canBeContained(el) {
			candidates = append(candidates, el)
		}
	}
	for _, c := range containers {
		if err := ctx.Err(); err != nil {
			return err
		}
		members := s.explicitMembers(c.ID)
		ch := s.cache.Convert(c).Handle
		geometric := ch != nil && ch.Kind == KindCell
		for _, e := range candidates {
			if e.ID == c.ID {
				continue
			}
			if members[e.ID] {
				acc.Add(c.ID, e.ID, model.ProvenanceStructural)
				continue
			}
			if !geometric {
				continue
			}
			eh := s.cache.Convert(e).Handle
			if eh == nil || !ch.bounds.Contains(eh.bounds, tol) {
				continue
			}
			if s.guard(c.ID, e.ID, func() bool { return s.encloses(ch, eh, tol) }) {
				acc.Add(c.ID, e.ID, model.ProvenanceGeometric)
			}
		}
	}
	return nil
}

// encloses reports whether every vertex of inner lies in the container cell.
func (s *Session) encloses(container, inner *Handle, tol float64) bool {
	pts := inner.Vertices()
	if len(pts) == 0 {
		return false
	}
	for _, p := range pts {
		if !s.kernel.VolumeContains(container.Cell, p, tol) {
			return false
		}
	}
	return true
}

// structuralContainment adds the explicit and transitive members of every
// storey and space.
func (s *Session) structuralContainment(_ context.Context, acc *RelationSet) error {
	for _, c := range s.model.ElementsOfType(model.TypeStorey, model.TypeSpace) {
		for _, id := range sortedKeys(s.explicitMembers(c.ID)) {
			acc.Add(c.ID, id, model.ProvenanceStructural)
		}
	}
	return nil
}

// explicitMembers resolves the structural members of a container: its
// direct containment members, its decomposition children and, through
// child spaces, their members.
func (s *Session) explicitMembers(containerID string) map[string]bool {
	members := map[string]bool{}
	add := func(id string) {
		if el, ok := s.model.Element(id); ok && canBeContained(el) && id != containerID {
			members[id] = true
		}
	}
	for _, id := range s.model.MembersOf(containerID) {
		add(id)
	}
	subs := append(append([]string(nil), s.model.ChildrenOf(containerID)...), s.model.MembersOf(containerID)...)
	for _, sub := range subs {
		if sub == containerID || s.model.TypeOf(sub) != model.TypeSpace {
			continue
		}
		add(sub)
		for _, id := range s.model.MembersOf(sub) {
			add(id)
		}
	}
	return members
}
