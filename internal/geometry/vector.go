// Package geometry is a small polyhedral kernel: it builds cells, faces and
// edges from tessellated element geometry and answers the coincidence and
// inclusion predicates used by the topology engine.
package geometry

import "math"

// DefaultTolerance is the distance under which two points are the same point.
const DefaultTolerance = 0.001

// Point is a location in model units.
type Point struct {
	X, Y, Z float64
}

// P is shorthand for building a Point.
func P(x, y, z float64) Point { return Point{X: x, Y: y, Z: z} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s, p.Z * s} }
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }
func (p Point) Length() float64 { return math.Sqrt(p.Dot(p)) }
func (p Point) Distance(q Point) float64 { return p.Sub(q).Length() }

func (p Point) Cross(q Point) Point {
	return Point{
		p.Y*q.Z - p.Z*q.Y,
		p.Z*q.X - p.X*q.Z,
		p.X*q.Y - p.Y*q.X,
	}
}

// Normalize returns the unit vector of p, or the zero vector.
func (p Point) Normalize() Point {
	l := p.Length()
	if l == 0 {
		return Point{}
	}
	return p.Scale(1 / l)
}

// Near reports whether p and q coincide within tol.
func (p Point) Near(q Point, tol float64) bool {
	return p.Distance(q) <= tol
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Distance(a.Add(ab.Scale(t)))
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Point
	valid    bool
}

// BoxOf returns the bounding box of pts. An empty input gives an empty box.
func BoxOf(pts ...Point) Box {
	var b Box
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

// Empty reports whether the box contains no point at all.
func (b Box) Empty() bool { return !b.valid }

// Extend grows the box to include p.
func (b Box) Extend(p Point) Box {
	if !b.valid {
		return Box{Min: p, Max: p, valid: true}
	}
	b.Min = Point{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)}
	b.Max = Point{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if !o.valid {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Intersects reports whether the boxes overlap once each is grown by tol.
func (b Box) Intersects(o Box, tol float64) bool {
	if !b.valid || !o.valid {
		return false
	}
	return b.Min.X-tol <= o.Max.X && o.Min.X-tol <= b.Max.X &&
		b.Min.Y-tol <= o.Max.Y && o.Min.Y-tol <= b.Max.Y &&
		b.Min.Z-tol <= o.Max.Z && o.Min.Z-tol <= b.Max.Z
}

// Contains reports whether o lies inside b grown by tol.
func (b Box) Contains(o Box, tol float64) bool {
	if !b.valid || !o.valid {
		return false
	}
	return o.Min.X >= b.Min.X-tol && o.Max.X <= b.Max.X+tol &&
		o.Min.Y >= b.Min.Y-tol && o.Max.Y <= b.Max.Y+tol &&
		o.Min.Z >= b.Min.Z-tol && o.Max.Z <= b.Max.Z+tol
}

// ContainsPoint reports whether p lies inside b grown by tol.
func (b Box) ContainsPoint(p Point, tol float64) bool {
	return b.Contains(BoxOf(p), tol)
}
