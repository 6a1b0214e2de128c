package geometry

import "math"

// Edge is a straight segment.
type Edge struct {
	Start, End Point
}

// Length returns the segment length.
func (e Edge) Length() float64 { return e.Start.Distance(e.End) }

// Bounds returns the bounding box of the segment.
func (e Edge) Bounds() Box { return BoxOf(e.Start, e.End) }

// Face is a planar polygon given by its boundary loop. The loop is not
// closed explicitly: the last vertex connects back to the first.
type Face struct {
	Loop []Point

	normal Point
	area   float64
	bounds Box
}

func newFace(loop []Point) *Face {
	f := &Face{Loop: loop, bounds: BoxOf(loop...)}
	// Newell's method.
	var n Point
	for i, cur := range loop {
		next := loop[(i+1)%len(loop)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	f.area = n.Length() / 2
	f.normal = n.Normalize()
	return f
}

// Normal returns the unit normal of the face.
func (f *Face) Normal() Point { return f.normal }

// Area returns the polygon area.
func (f *Face) Area() float64 { return f.area }

// Bounds returns the bounding box of the face.
func (f *Face) Bounds() Box { return f.bounds }

// Edges returns the boundary segments of the loop.
func (f *Face) Edges() []Edge {
	edges := make([]Edge, len(f.Loop))
	for i, p := range f.Loop {
		edges[i] = Edge{Start: p, End: f.Loop[(i+1)%len(f.Loop)]}
	}
	return edges
}

// Distance returns the shortest distance from p to the polygon.
func (f *Face) Distance(p Point) float64 {
	d := p.Sub(f.Loop[0]).Dot(f.normal)
	proj := p.Sub(f.normal.Scale(d))
	if f.containsCoplanar(proj) {
		return math.Abs(d)
	}
	best := math.Inf(1)
	for _, e := range f.Edges() {
		best = math.Min(best, segmentDistance(p, e.Start, e.End))
	}
	return best
}

// containsCoplanar runs a crossing test for a point lying in the face plane,
// projecting onto the plane perpendicular to the dominant normal axis.
func (f *Face) containsCoplanar(p Point) bool {
	ax, ay := projectionAxes(f.normal)
	px, py := coord(p, ax), coord(p, ay)
	inside := false
	n := len(f.Loop)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coord(f.Loop[i], ax), coord(f.Loop[i], ay)
		xj, yj := coord(f.Loop[j], ax), coord(f.Loop[j], ay)
		if (yi > py) != (yj > py) && px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func projectionAxes(n Point) (int, int) {
	x, y, z := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case z >= x && z >= y:
		return 0, 1
	case y >= x:
		return 0, 2
	default:
		return 1, 2
	}
}

func coord(p Point, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	}
	return p.Z
}

// Cell is a closed polyhedral shell.
type Cell struct {
	Faces []*Face

	bounds Box
}

// Bounds returns the bounding box of the cell.
func (c *Cell) Bounds() Box { return c.bounds }

// Vertices returns every loop vertex of the cell, duplicates included.
func (c *Cell) Vertices() []Point {
	var pts []Point
	for _, f := range c.Faces {
		pts = append(pts, f.Loop...)
	}
	return pts
}

// Edges returns the boundary segments of every face.
func (c *Cell) Edges() []Edge {
	var edges []Edge
	for _, f := range c.Faces {
		edges = append(edges, f.Edges()...)
	}
	return edges
}
