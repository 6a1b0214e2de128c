package model

import "fmt"

// RelationshipKind is the graph relationship type.
type RelationshipKind string

const (
	KindAdjacent      RelationshipKind = "ADJACENT"
	KindContains      RelationshipKind = "CONTAINS"
	KindIsContainedIn RelationshipKind = "IS_CONTAINED_IN"
	KindBounds        RelationshipKind = "BOUNDS"
	KindIsBoundedBy   RelationshipKind = "IS_BOUNDED_BY"
	KindConnects      RelationshipKind = "CONNECTS"
)

// AllKinds lists every relationship kind in a stable order.
var AllKinds = []RelationshipKind{
	KindAdjacent, KindContains, KindIsContainedIn, KindBounds, KindIsBoundedBy, KindConnects,
}

// DefaultPathKinds are traversed by the path finder when no kinds are given.
var DefaultPathKinds = []RelationshipKind{
	KindAdjacent, KindContains, KindIsContainedIn, KindBounds, KindIsBoundedBy,
}

// ParseKind validates a relationship kind name.
func ParseKind(s string) (RelationshipKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown relationship kind %q", s)
}

// Inverse returns the kind that must accompany k in the opposite direction.
// Symmetric kinds are their own inverse.
func (k RelationshipKind) Inverse() RelationshipKind {
	switch k {
	case KindContains:
		return KindIsContainedIn
	case KindIsContainedIn:
		return KindContains
	case KindBounds:
		return KindIsBoundedBy
	case KindIsBoundedBy:
		return KindBounds
	}
	return k
}

// Symmetric reports whether k must exist in both directions with the same kind.
func (k RelationshipKind) Symmetric() bool {
	return k == KindAdjacent || k == KindConnects
}

// Provenance records which strategy produced a relationship.
type Provenance string

const (
	ProvenanceGeometric  Provenance = "geometricAnalysis"
	ProvenanceStructural Provenance = "explicitStructure"
)

// SourceTopologicalAnalysis tags every relationship written by the engine so
// that it can be told apart from relationships imported by other tools.
const SourceTopologicalAnalysis = "topologicalAnalysis"

// Relationship is one directed edge of the connectivity graph.
type Relationship struct {
	Source     string           `json:"source"`
	Target     string           `json:"target"`
	Kind       RelationshipKind `json:"kind"`
	Provenance Provenance       `json:"provenance"`
	Properties map[string]any   `json:"properties,omitempty"`
}

// Key identifies a relationship for deduplication.
func (r Relationship) Key() RelationshipKey {
	return RelationshipKey{Source: r.Source, Target: r.Target, Kind: r.Kind}
}

// RelationshipKey is the (source, target, kind) identity of an edge.
type RelationshipKey struct {
	Source string
	Target string
	Kind   RelationshipKind
}

// Reverse returns the key of the companion edge.
func (k RelationshipKey) Reverse() RelationshipKey {
	return RelationshipKey{Source: k.Target, Target: k.Source, Kind: k.Kind.Inverse()}
}
