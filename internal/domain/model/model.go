package model

import "sort"

// Opening links a door or window to the host element it fills through an
// opening element.
type Opening struct {
	FillingID string `json:"filling"`
	OpeningID string `json:"opening"`
	HostID    string `json:"host"`
}

// SpaceBoundary relates exactly one space to one bounding element.
type SpaceBoundary struct {
	SpaceID   string `json:"space"`
	ElementID string `json:"element"`
}

// Model is the immutable element set of one loaded building model together
// with its explicit structural relationship tables.
type Model struct {
	Elements        []Element
	Containment     map[string][]string // container id -> member ids
	Aggregation     map[string][]string // parent id -> child ids
	Openings        []Opening
	SpaceBoundaries []SpaceBoundary

	byID       map[string]int
	containers map[string][]string
	parents    map[string][]string
	hosts      map[string][]string
	boundaries map[string][]string
}

// NewModel indexes the given elements and relationship tables. Elements
// with a duplicate id keep their first occurrence.
func NewModel(elements []Element, containment, aggregation map[string][]string, openings []Opening, boundaries []SpaceBoundary) *Model {
	m := &Model{
		Containment:     containment,
		Aggregation:     aggregation,
		Openings:        openings,
		SpaceBoundaries: boundaries,
		byID:            make(map[string]int, len(elements)),
		containers:      make(map[string][]string),
		parents:         make(map[string][]string),
		hosts:           make(map[string][]string),
		boundaries:      make(map[string][]string),
	}
	if m.Containment == nil {
		m.Containment = map[string][]string{}
	}
	if m.Aggregation == nil {
		m.Aggregation = map[string][]string{}
	}
	for _, el := range elements {
		if el.ID == "" {
			continue
		}
		if _, dup := m.byID[el.ID]; dup {
			continue
		}
		m.byID[el.ID] = len(m.Elements)
		m.Elements = append(m.Elements, el)
	}
	for container, members := range m.Containment {
		for _, member := range members {
			m.containers[member] = appendUnique(m.containers[member], container)
		}
	}
	for parent, children := range m.Aggregation {
		for _, child := range children {
			m.parents[child] = appendUnique(m.parents[child], parent)
		}
	}
	for _, o := range openings {
		if o.FillingID == "" || o.HostID == "" {
			continue
		}
		m.hosts[o.FillingID] = appendUnique(m.hosts[o.FillingID], o.HostID)
	}
	for _, b := range boundaries {
		if b.SpaceID == "" || b.ElementID == "" {
			continue
		}
		m.boundaries[b.SpaceID] = appendUnique(m.boundaries[b.SpaceID], b.ElementID)
	}
	for _, idx := range []map[string][]string{m.containers, m.parents, m.hosts, m.boundaries} {
		for k := range idx {
			sort.Strings(idx[k])
		}
	}
	return m
}

// Element looks up an element by id.
func (m *Model) Element(id string) (Element, bool) {
	i, ok := m.byID[id]
	if !ok {
		return Element{}, false
	}
	return m.Elements[i], true
}

// TypeOf returns the type of the element with the given id, or TypeOther.
func (m *Model) TypeOf(id string) ElementType {
	if el, ok := m.Element(id); ok {
		return el.Type
	}
	return TypeOther
}

// ElementsOfType returns the elements whose type is one of types, in model order.
func (m *Model) ElementsOfType(types ...ElementType) []Element {
	var out []Element
	for _, el := range m.Elements {
		for _, t := range types {
			if el.Type == t {
				out = append(out, el)
				break
			}
		}
	}
	return out
}

// MembersOf returns the explicit containment members of a container.
func (m *Model) MembersOf(containerID string) []string {
	return m.Containment[containerID]
}

// ContainersOf returns the containers explicitly holding an element.
func (m *Model) ContainersOf(id string) []string {
	return m.containers[id]
}

// ChildrenOf returns the decomposition children of a spatial element.
func (m *Model) ChildrenOf(parentID string) []string {
	return m.Aggregation[parentID]
}

// ParentsOf returns the decomposition parents of a spatial element.
func (m *Model) ParentsOf(id string) []string {
	return m.parents[id]
}

// HostsOf returns the elements a door or window fills.
func (m *Model) HostsOf(fillingID string) []string {
	return m.hosts[fillingID]
}

// BoundariesOf returns the explicit bounding elements of a space.
func (m *Model) BoundariesOf(spaceID string) []string {
	return m.boundaries[spaceID]
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
