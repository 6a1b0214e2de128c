package model

import "strings"

// ElementType is the closed taxonomy of building element categories.
type ElementType string

const (
	TypeSpace    ElementType = "Space"
	TypeWall     ElementType = "Wall"
	TypeSlab     ElementType = "Slab"
	TypeRoof     ElementType = "Roof"
	TypeBeam     ElementType = "Beam"
	TypeColumn   ElementType = "Column"
	TypeDoor     ElementType = "Door"
	TypeWindow   ElementType = "Window"
	TypeMember   ElementType = "Member"
	TypeStorey   ElementType = "Storey"
	TypeBuilding ElementType = "Building"
	TypeSite     ElementType = "Site"
	TypeOther    ElementType = "Other"
)

var ifcClassTypes = map[string]ElementType{
	"ifcspace":              TypeSpace,
	"ifcwall":               TypeWall,
	"ifcwallstandardcase":   TypeWall,
	"ifccurtainwall":        TypeWall,
	"ifcslab":               TypeSlab,
	"ifcslabstandardcase":   TypeSlab,
	"ifcroof":               TypeRoof,
	"ifcbeam":               TypeBeam,
	"ifcbeamstandardcase":   TypeBeam,
	"ifccolumn":             TypeColumn,
	"ifccolumnstandardcase": TypeColumn,
	"ifcdoor":               TypeDoor,
	"ifcdoorstandardcase":   TypeDoor,
	"ifcwindow":             TypeWindow,
	"ifcwindowstandardcase": TypeWindow,
	"ifcmember":             TypeMember,
	"ifcmemberstandardcase": TypeMember,
	"ifcbuildingstorey":     TypeStorey,
	"ifcbuilding":           TypeBuilding,
	"ifcsite":               TypeSite,
}

// ParseElementType accepts canonical names ("Wall") as well as IFC class
// names ("IfcWallStandardCase"). Unknown names map to TypeOther.
func ParseElementType(s string) ElementType {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := ifcClassTypes[key]; ok {
		return t
	}
	for _, t := range []ElementType{
		TypeSpace, TypeWall, TypeSlab, TypeRoof, TypeBeam, TypeColumn, TypeDoor,
		TypeWindow, TypeMember, TypeStorey, TypeBuilding, TypeSite,
	} {
		if strings.ToLower(string(t)) == key {
			return t
		}
	}
	return TypeOther
}

// IsSpatial reports whether t belongs to the spatial structure rather than
// to the physical building elements.
func (t ElementType) IsSpatial() bool {
	switch t {
	case TypeSpace, TypeStorey, TypeBuilding, TypeSite:
		return true
	}
	return false
}

// IsLinear reports whether elements of this type may fall back to a curve.
func (t ElementType) IsLinear() bool {
	return t == TypeBeam || t == TypeColumn || t == TypeMember
}

// IsSignificant reports whether elements of this type become graph nodes.
func (t ElementType) IsSignificant() bool {
	switch t {
	case TypeSpace, TypeWall, TypeSlab, TypeBeam, TypeColumn, TypeDoor, TypeWindow, TypeRoof, TypeStorey:
		return true
	}
	return false
}

// Labels returns the graph labels for nodes of this type. The first label is
// the primary one and carries the uniqueness constraint.
func (t ElementType) Labels() []string {
	switch t {
	case TypeSpace:
		return []string{"IfcSpace"}
	case TypeStorey:
		return []string{"IfcBuildingStorey"}
	case TypeBuilding:
		return []string{"IfcBuilding"}
	case TypeSite:
		return []string{"IfcSite"}
	default:
		return []string{string(t), "Element"}
	}
}

// Point3 is a vertex in model units.
type Point3 [3]float64

// Geometry is the raw tessellation handed over by the parser.
type Geometry struct {
	Vertices []Point3 `json:"vertices"`
	Faces    [][]int  `json:"faces"`
}

// Element is a building element as produced by the model parser.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	Name     string      `json:"name,omitempty"`
	Geometry *Geometry   `json:"geometry,omitempty"`
}

// VertexCount returns the number of raw vertices, zero when geometry is missing.
func (e Element) VertexCount() int {
	if e.Geometry == nil {
		return 0
	}
	return len(e.Geometry.Vertices)
}
