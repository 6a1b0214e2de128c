package geometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrTooFewFaces    = errors.New("cell needs at least 4 faces")
	ErrOpenShell      = errors.New("faces do not form a closed shell")
	ErrTooFewVertices = errors.New("not enough distinct vertices")
	ErrDegenerate     = errors.New("degenerate geometry")
)

// rayDirection is the parity-test ray, skewed off every axis and diagonal.
var rayDirection = Point{0.5773, 0.5779, 0.5767}.Normalize()

// Kernel builds shapes and evaluates predicates. It holds no state and is
// safe for concurrent use.
type Kernel struct{}

// NewKernel returns the polyhedral kernel.
func NewKernel() *Kernel { return &Kernel{} }

// FaceFromWire builds a planar face from a polygon loop. A closing vertex
// repeating the first one is dropped, as are consecutive duplicates.
func (k *Kernel) FaceFromWire(wire []Point, tol float64) (*Face, error) {
	loop := make([]Point, 0, len(wire))
	for _, p := range wire {
		if len(loop) > 0 && loop[len(loop)-1].Near(p, tol) {
			continue
		}
		loop = append(loop, p)
	}
	for len(loop) > 1 && loop[len(loop)-1].Near(loop[0], tol) {
		loop = loop[:len(loop)-1]
	}
	if len(loop) < 3 {
		return nil, fmt.Errorf("face from %d points: %w", len(wire), ErrTooFewVertices)
	}
	f := newFace(loop)
	if f.area <= tol*tol {
		return nil, fmt.Errorf("face area %g: %w", f.area, ErrDegenerate)
	}
	return f, nil
}

// CellFromFaces builds a cell from at least four faces that together form
// a closed shell: after welding vertices within tol every edge must be
// shared by two or more faces.
func (k *Kernel) CellFromFaces(faces []*Face, tol float64) (*Cell, error) {
	if len(faces) < 4 {
		return nil, fmt.Errorf("cell from %d faces: %w", len(faces), ErrTooFewFaces)
	}
	var welded []Point
	weld := func(p Point) int {
		for i, q := range welded {
			if q.Near(p, tol) {
				return i
			}
		}
		welded = append(welded, p)
		return len(welded) - 1
	}
	type edgeKey struct{ a, b int }
	uses := make(map[edgeKey]int)
	bounds := Box{}
	for _, f := range faces {
		bounds = bounds.Union(f.bounds)
		for _, e := range f.Edges() {
			a, b := weld(e.Start), weld(e.End)
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			uses[edgeKey{a, b}]++
		}
	}
	if len(welded) < 4 {
		return nil, fmt.Errorf("cell with %d vertices: %w", len(welded), ErrTooFewVertices)
	}
	for key, n := range uses {
		if n < 2 {
			return nil, fmt.Errorf("edge %v-%v used by %d face: %w", welded[key.a], welded[key.b], n, ErrOpenShell)
		}
	}
	return &Cell{Faces: faces, bounds: bounds}, nil
}

// EdgeFromVertices builds a segment between two distinct points.
func (k *Kernel) EdgeFromVertices(start, end Point, tol float64) (*Edge, error) {
	if start.Near(end, tol) {
		return nil, fmt.Errorf("edge of length %g: %w", start.Distance(end), ErrDegenerate)
	}
	return &Edge{Start: start, End: end}, nil
}

// IsSameFace reports whether two faces have the same vertex set within tol,
// regardless of orientation or starting vertex.
func (k *Kernel) IsSameFace(a, b *Face, tol float64) bool {
	if len(a.Loop) != len(b.Loop) || !a.bounds.Intersects(b.bounds, tol) {
		return false
	}
	return coversAll(a.Loop, b.Loop, tol) && coversAll(b.Loop, a.Loop, tol)
}

// SharedFaces counts the faces of a that are in contact with a face of b:
// coplanar within tol with a common area. The faces need not match, so a
// wall butting into the middle of a longer wall shares a face with it.
func (k *Kernel) SharedFaces(a, b *Cell, tol float64) int {
	if !a.bounds.Intersects(b.bounds, tol) {
		return 0
	}
	n := 0
	for _, fa := range a.Faces {
		for _, fb := range b.Faces {
			if k.FacesOverlap(fa, fb, tol) {
				n++
				break
			}
		}
	}
	return n
}

// SharedEdges counts the boundary edges of a that run along an edge of b
// for more than tol.
func (k *Kernel) SharedEdges(a, b *Face, tol float64) int {
	if !a.bounds.Intersects(b.bounds, tol) {
		return 0
	}
	eb := b.Edges()
	n := 0
	for _, ea := range a.Edges() {
		for _, e := range eb {
			if k.EdgesOverlap(ea, e, tol) {
				n++
				break
			}
		}
	}
	return n
}

// SharedVertices counts the points of a that coincide with a point of b.
func (k *Kernel) SharedVertices(a, b []Point, tol float64) int {
	n := 0
	for _, p := range a {
		for _, q := range b {
			if p.Near(q, tol) {
				n++
				break
			}
		}
	}
	return n
}

// VolumeContains reports whether p lies inside the cell or on its boundary
// within tol.
func (k *Kernel) VolumeContains(c *Cell, p Point, tol float64) bool {
	if !c.bounds.ContainsPoint(p, tol) {
		return false
	}
	for _, f := range c.Faces {
		if f.Distance(p) <= tol {
			return true
		}
	}
	crossings := 0
	for _, f := range c.Faces {
		denom := f.normal.Dot(rayDirection)
		if math.Abs(denom) < 1e-12 {
			continue
		}
		t := f.normal.Dot(f.Loop[0].Sub(p)) / denom
		if t <= 0 {
			continue
		}
		if f.containsCoplanar(p.Add(rayDirection.Scale(t))) {
			crossings++
		}
	}
	return crossings%2 == 1
}

func coversAll(pts, of []Point, tol float64) bool {
	for _, p := range pts {
		found := false
		for _, q := range of {
			if p.Near(q, tol) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
