package topology

import (
	"sync/atomic"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/geometry"
)

// countingKernel wraps the real kernel and counts constructor calls.
type countingKernel struct {
	*geometry.Kernel
	cells atomic.Int64
	faces atomic.Int64
	edges atomic.Int64

	panicOnShared bool
}

func newCountingKernel() *countingKernel {
	return &countingKernel{Kernel: geometry.NewKernel()}
}

func (k *countingKernel) CellFromFaces(faces []*geometry.Face, tol float64) (*geometry.Cell, error) {
	k.cells.Add(1)
	return k.Kernel.CellFromFaces(faces, tol)
}

func (k *countingKernel) FaceFromWire(wire []geometry.Point, tol float64) (*geometry.Face, error) {
	k.faces.Add(1)
	return k.Kernel.FaceFromWire(wire, tol)
}

func (k *countingKernel) EdgeFromVertices(a, b geometry.Point, tol float64) (*geometry.Edge, error) {
	k.edges.Add(1)
	return k.Kernel.EdgeFromVertices(a, b, tol)
}

func (k *countingKernel) SharedFaces(a, b *geometry.Cell, tol float64) int {
	if k.panicOnShared {
		panic("kernel fault")
	}
	return k.Kernel.SharedFaces(a, b, tol)
}

// boxGeometry returns the 8-vertex, 6-face tessellation of an axis-aligned box.
func boxGeometry(lo, hi model.Point3) *model.Geometry {
	return &model.Geometry{
		Vertices: []model.Point3{
			{lo[0], lo[1], lo[2]}, {hi[0], lo[1], lo[2]}, {hi[0], hi[1], lo[2]}, {lo[0], hi[1], lo[2]},
			{lo[0], lo[1], hi[2]}, {hi[0], lo[1], hi[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]},
		},
		Faces: [][]int{{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7}},
	}
}

func el(id string, t model.ElementType, g *model.Geometry) model.Element {
	return model.Element{ID: id, Type: t, Name: id, Geometry: g}
}
