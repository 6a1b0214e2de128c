package topology

import "github.com/ismail-codar/IFC-GraphRAG-System/internal/geometry"

// Kernel is the geometry collaborator. Every operation takes a distance
// tolerance in model units. Implementations must be safe for concurrent use
// because warm-up conversion calls the constructors from several goroutines.
type Kernel interface {
	CellFromFaces(faces []*geometry.Face, tol float64) (*geometry.Cell, error)
	FaceFromWire(wire []geometry.Point, tol float64) (*geometry.Face, error)
	EdgeFromVertices(start, end geometry.Point, tol float64) (*geometry.Edge, error)

	SharedFaces(a, b *geometry.Cell, tol float64) int
	SharedEdges(a, b *geometry.Face, tol float64) int
	SharedVertices(a, b []geometry.Point, tol float64) int
	IsSameFace(a, b *geometry.Face, tol float64) bool
	FacesOverlap(a, b *geometry.Face, tol float64) bool
	EdgesOverlap(a, b geometry.Edge, tol float64) bool
	VolumeContains(c *geometry.Cell, p geometry.Point, tol float64) bool
}

var _ Kernel = (*geometry.Kernel)(nil)
