package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElementType(t *testing.T) {
	cases := map[string]ElementType{
		"Wall":                TypeWall,
		"IfcWallStandardCase": TypeWall,
		"IFCSPACE":            TypeSpace,
		"IfcBuildingStorey":   TypeStorey,
		"storey":              TypeStorey,
		" IfcDoor ":           TypeDoor,
		"IfcFurnishing":       TypeOther,
		"":                    TypeOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseElementType(in), "input %q", in)
	}
}

func TestElementTypeLabels(t *testing.T) {
	assert.Equal(t, []string{"IfcSpace"}, TypeSpace.Labels())
	assert.Equal(t, []string{"IfcBuildingStorey"}, TypeStorey.Labels())
	assert.Equal(t, []string{"Wall", "Element"}, TypeWall.Labels())
	assert.True(t, TypeStorey.IsSignificant())
	assert.False(t, TypeMember.IsSignificant())
	assert.False(t, TypeBuilding.IsSignificant())
}

func TestNewModelIndexes(t *testing.T) {
	m := NewModel(
		[]Element{{ID: "S1", Type: TypeSpace}, {ID: "W1", Type: TypeWall}, {ID: "W1", Type: TypeSlab}, {ID: "D1", Type: TypeDoor}},
		map[string][]string{"S1": {"W1"}},
		map[string][]string{"ST1": {"S1"}},
		[]Opening{{FillingID: "D1", OpeningID: "O1", HostID: "W1"}},
		[]SpaceBoundary{{SpaceID: "S1", ElementID: "W1"}, {SpaceID: "S1", ElementID: "W1"}},
	)

	require.Len(t, m.Elements, 3)
	el, ok := m.Element("W1")
	require.True(t, ok)
	assert.Equal(t, TypeWall, el.Type, "first occurrence wins")

	assert.Equal(t, []string{"S1"}, m.ContainersOf("W1"))
	assert.Equal(t, []string{"ST1"}, m.ParentsOf("S1"))
	assert.Equal(t, []string{"W1"}, m.HostsOf("D1"))
	assert.Equal(t, []string{"W1"}, m.BoundariesOf("S1"))
	assert.Len(t, m.ElementsOfType(TypeWall, TypeDoor), 2)
	assert.Equal(t, TypeOther, m.TypeOf("missing"))
}

func TestGraphValidate(t *testing.T) {
	nodes := map[string]Node{"A": {ID: "A"}, "B": {ID: "B"}}

	good := NewConnectivityGraph(nodes, []Relationship{
		{Source: "A", Target: "B", Kind: KindAdjacent},
		{Source: "B", Target: "A", Kind: KindAdjacent},
		{Source: "A", Target: "B", Kind: KindContains},
		{Source: "B", Target: "A", Kind: KindIsContainedIn},
	})
	assert.NoError(t, good.Validate())

	missingInverse := NewConnectivityGraph(nodes, []Relationship{
		{Source: "A", Target: "B", Kind: KindBounds},
	})
	assert.Error(t, missingInverse.Validate())

	asymmetric := NewConnectivityGraph(nodes, []Relationship{
		{Source: "A", Target: "B", Kind: KindConnects},
	})
	assert.Error(t, asymmetric.Validate())

	selfLoop := NewConnectivityGraph(nodes, []Relationship{
		{Source: "A", Target: "A", Kind: KindAdjacent},
	})
	assert.Error(t, selfLoop.Validate())
}

func TestGraphNeighborsFiltersKinds(t *testing.T) {
	g := NewConnectivityGraph(map[string]Node{"A": {ID: "A"}, "B": {ID: "B"}, "C": {ID: "C"}}, []Relationship{
		{Source: "A", Target: "C", Kind: KindContains},
		{Source: "A", Target: "B", Kind: KindAdjacent},
	})

	all := g.Neighbors("A", nil)
	require.Len(t, all, 2)
	assert.Equal(t, KindAdjacent, all[0].Kind, "edges are sorted by kind")

	only := g.Neighbors("A", map[RelationshipKind]bool{KindContains: true})
	require.Len(t, only, 1)
	assert.Equal(t, "C", only[0].Target)
	assert.Equal(t, map[RelationshipKind]int{KindContains: 1, KindAdjacent: 1}, g.CountByKind())
}

func TestPathHelpers(t *testing.T) {
	var empty Path
	assert.False(t, empty.Found())
	assert.Equal(t, 0, empty.Len())

	p := Path{Hops: []Hop{{Node: Node{ID: "A"}}, {Node: Node{ID: "B"}, Kind: KindAdjacent}}}
	assert.True(t, p.Found())
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, []string{"A", "B"}, p.IDs())
}
