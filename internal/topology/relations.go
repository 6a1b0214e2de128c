package topology

import (
	"sort"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
)

// RelationSet is a directed relationship map with the provenance of each
// pair. The first strategy to record a pair owns its provenance.
type RelationSet struct {
	pairs map[string]map[string]model.Provenance
	count int
}

func newRelationSet() *RelationSet {
	return &RelationSet{pairs: make(map[string]map[string]model.Provenance)}
}

// Add records source -> target. Self pairs are ignored. It reports whether
// the pair is new.
func (s *RelationSet) Add(source, target string, p model.Provenance) bool {
	if source == "" || target == "" || source == target {
		return false
	}
	targets, ok := s.pairs[source]
	if !ok {
		targets = make(map[string]model.Provenance)
		s.pairs[source] = targets
	}
	if _, exists := targets[target]; exists {
		return false
	}
	targets[target] = p
	s.count++
	return true
}

// AddSymmetric records both directions in one step.
func (s *RelationSet) AddSymmetric(a, b string, p model.Provenance) bool {
	added := s.Add(a, b, p)
	if s.Add(b, a, p) {
		added = true
	}
	return added
}

// Has reports whether source -> target is recorded.
func (s *RelationSet) Has(source, target string) bool {
	_, ok := s.pairs[source][target]
	return ok
}

// Provenance returns the provenance of a recorded pair.
func (s *RelationSet) Provenance(source, target string) (model.Provenance, bool) {
	p, ok := s.pairs[source][target]
	return p, ok
}

// Len returns the number of directed pairs.
func (s *RelationSet) Len() int { return s.count }

// CountBy returns the number of pairs recorded with provenance p.
func (s *RelationSet) CountBy(p model.Provenance) int {
	n := 0
	for _, targets := range s.pairs {
		for _, got := range targets {
			if got == p {
				n++
			}
		}
	}
	return n
}

// Sources returns every source id in sorted order.
func (s *RelationSet) Sources() []string {
	out := make([]string, 0, len(s.pairs))
	for src := range s.pairs {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// Targets returns the targets of source in sorted order.
func (s *RelationSet) Targets(source string) []string {
	targets := s.pairs[source]
	out := make([]string, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Map returns the relation as id -> sorted target ids.
func (s *RelationSet) Map() map[string][]string {
	out := make(map[string][]string, len(s.pairs))
	for src := range s.pairs {
		out[src] = s.Targets(src)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
