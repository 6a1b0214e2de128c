package geometry

import (
	"math"
	"slices"
)

// FacesOverlap reports whether two faces lie in one plane within tol and
// cover a common region larger than tol². Faces that only meet along an
// edge or at a corner do not overlap.
func (k *Kernel) FacesOverlap(a, b *Face, tol float64) bool {
	if !a.bounds.Intersects(b.bounds, tol) || !coplanar(a, b, tol) {
		return false
	}
	return OverlapArea(a, b) > tol*tol
}

// EdgesOverlap reports whether two segments lie on one line within tol and
// share a stretch longer than tol.
func (k *Kernel) EdgesOverlap(a, b Edge, tol float64) bool {
	dir := a.End.Sub(a.Start)
	l := dir.Length()
	if l == 0 {
		return false
	}
	dir = dir.Scale(1 / l)
	for _, p := range []Point{b.Start, b.End} {
		if p.Sub(a.Start).Cross(dir).Length() > tol {
			return false
		}
	}
	t1, t2 := b.Start.Sub(a.Start).Dot(dir), b.End.Sub(a.Start).Dot(dir)
	lo, hi := math.Max(0, math.Min(t1, t2)), math.Min(l, math.Max(t1, t2))
	return hi-lo > tol
}

// OverlapArea returns the area common to two coplanar faces. Both loops are
// projected on the plane of a, split into triangles and clipped pairwise.
func OverlapArea(a, b *Face) float64 {
	ax, ay := projectionAxes(a.normal)
	scale := math.Abs(coord(a.normal, 3-ax-ay))
	if scale == 0 {
		return 0
	}
	ta := triangulate(project(a.Loop, ax, ay))
	tb := triangulate(project(b.Loop, ax, ay))
	var area float64
	for _, t := range ta {
		for _, u := range tb {
			area += math.Abs(polygonArea(clipConvex(t[:], u)))
		}
	}
	return area / scale
}

func coplanar(a, b *Face, tol float64) bool {
	return onPlane(a, b.Loop, tol) && onPlane(b, a.Loop, tol)
}

func onPlane(f *Face, pts []Point, tol float64) bool {
	for _, p := range pts {
		if math.Abs(p.Sub(f.Loop[0]).Dot(f.normal)) > tol {
			return false
		}
	}
	return true
}

type vec2 struct{ x, y float64 }

func project(loop []Point, ax, ay int) []vec2 {
	out := make([]vec2, len(loop))
	for i, p := range loop {
		out[i] = vec2{coord(p, ax), coord(p, ay)}
	}
	return out
}

// cross2 is positive when c lies left of the directed line a->b.
func cross2(a, b, c vec2) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// polygonArea is the signed shoelace area, positive for counter-clockwise
// loops.
func polygonArea(poly []vec2) float64 {
	var s float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		s += p.x*q.y - q.x*p.y
	}
	return s / 2
}

// triangulate splits a simple polygon into counter-clockwise triangles by
// ear clipping. Collinear leftovers carry no area and are dropped.
func triangulate(poly []vec2) [][3]vec2 {
	pts := slices.Clone(poly)
	if polygonArea(pts) < 0 {
		slices.Reverse(pts)
	}
	var tris [][3]vec2
	for len(pts) > 3 {
		n := len(pts)
		ear := -1
		for i := range pts {
			a, b, c := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
			if cross2(a, b, c) <= 0 {
				continue
			}
			if !anyInside(pts, a, b, c) {
				ear = i
				break
			}
		}
		if ear < 0 {
			return tris
		}
		tris = append(tris, [3]vec2{pts[(ear+n-1)%n], pts[ear], pts[(ear+1)%n]})
		pts = slices.Delete(pts, ear, ear+1)
	}
	if len(pts) == 3 && cross2(pts[0], pts[1], pts[2]) > 0 {
		tris = append(tris, [3]vec2{pts[0], pts[1], pts[2]})
	}
	return tris
}

// anyInside reports whether a polygon vertex other than the triangle's own
// corners lies strictly inside the triangle abc.
func anyInside(pts []vec2, a, b, c vec2) bool {
	for _, p := range pts {
		if p == a || p == b || p == c {
			continue
		}
		if cross2(a, b, p) > 0 && cross2(b, c, p) > 0 && cross2(c, a, p) > 0 {
			return true
		}
	}
	return false
}

// clipConvex clips subject against the counter-clockwise triangle clip
// (Sutherland-Hodgman).
func clipConvex(subject []vec2, clip [3]vec2) []vec2 {
	out := subject
	for i := 0; i < 3 && len(out) > 0; i++ {
		c1, c2 := clip[i], clip[(i+1)%3]
		in := out
		out = nil
		for j, cur := range in {
			prev := in[(j+len(in)-1)%len(in)]
			curIn, prevIn := cross2(c1, c2, cur) >= 0, cross2(c1, c2, prev) >= 0
			switch {
			case curIn && !prevIn:
				out = append(out, lineCut(prev, cur, c1, c2), cur)
			case curIn:
				out = append(out, cur)
			case prevIn:
				out = append(out, lineCut(prev, cur, c1, c2))
			}
		}
	}
	return out
}

// lineCut returns the point where segment pq crosses the line through ab.
// p and q lie on opposite sides of the line.
func lineCut(p, q, a, b vec2) vec2 {
	dp, dq := cross2(a, b, p), cross2(a, b, q)
	t := dp / (dp - dq)
	return vec2{p.x + (q.x-p.x)*t, p.y + (q.y-p.y)*t}
}
