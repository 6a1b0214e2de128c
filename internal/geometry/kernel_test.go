package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = DefaultTolerance

func boxFaces(t *testing.T, k *Kernel, lo, hi Point) []*Face {
	t.Helper()
	v := [8]Point{
		P(lo.X, lo.Y, lo.Z), P(hi.X, lo.Y, lo.Z), P(hi.X, hi.Y, lo.Z), P(lo.X, hi.Y, lo.Z),
		P(lo.X, lo.Y, hi.Z), P(hi.X, lo.Y, hi.Z), P(hi.X, hi.Y, hi.Z), P(lo.X, hi.Y, hi.Z),
	}
	loops := [][]int{{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7}}
	faces := make([]*Face, 0, len(loops))
	for _, l := range loops {
		f, err := k.FaceFromWire([]Point{v[l[0]], v[l[1]], v[l[2]], v[l[3]]}, tol)
		require.NoError(t, err)
		faces = append(faces, f)
	}
	return faces
}

func TestFaceFromWire(t *testing.T) {
	k := NewKernel()

	f, err := k.FaceFromWire([]Point{P(0, 0, 0), P(2, 0, 0), P(2, 1, 0), P(0, 1, 0), P(0, 0, 0)}, tol)
	require.NoError(t, err)
	assert.Len(t, f.Loop, 4, "closing vertex is dropped")
	assert.InDelta(t, 2.0, f.Area(), 1e-9)
	assert.InDelta(t, 1.0, abs(f.Normal().Z), 1e-9)

	_, err = k.FaceFromWire([]Point{P(0, 0, 0), P(1, 0, 0)}, tol)
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = k.FaceFromWire([]Point{P(0, 0, 0), P(1, 0, 0), P(2, 0, 0)}, tol)
	assert.ErrorIs(t, err, ErrDegenerate, "collinear points have no area")
}

func TestCellFromFaces(t *testing.T) {
	k := NewKernel()
	faces := boxFaces(t, k, P(0, 0, 0), P(1, 1, 1))

	c, err := k.CellFromFaces(faces, tol)
	require.NoError(t, err)
	assert.Len(t, c.Faces, 6)
	assert.Equal(t, P(1, 1, 1), c.Bounds().Max)

	_, err = k.CellFromFaces(faces[:5], tol)
	assert.ErrorIs(t, err, ErrOpenShell)

	_, err = k.CellFromFaces(faces[:3], tol)
	assert.ErrorIs(t, err, ErrTooFewFaces)
}

func TestSharedFacesBetweenNeighbouringBoxes(t *testing.T) {
	k := NewKernel()
	a, err := k.CellFromFaces(boxFaces(t, k, P(0, 0, 0), P(1, 1, 1)), tol)
	require.NoError(t, err)
	b, err := k.CellFromFaces(boxFaces(t, k, P(1, 0, 0), P(2, 1, 1)), tol)
	require.NoError(t, err)
	c, err := k.CellFromFaces(boxFaces(t, k, P(5, 5, 5), P(6, 6, 6)), tol)
	require.NoError(t, err)

	assert.Equal(t, 1, k.SharedFaces(a, b, tol))
	assert.Equal(t, 1, k.SharedFaces(b, a, tol))
	assert.Zero(t, k.SharedFaces(a, c, tol))
}

func TestIsSameFaceIgnoresOrientation(t *testing.T) {
	k := NewKernel()
	f, err := k.FaceFromWire([]Point{P(0, 0, 0), P(1, 0, 0), P(1, 1, 0), P(0, 1, 0)}, tol)
	require.NoError(t, err)
	g, err := k.FaceFromWire([]Point{P(1, 1, 0), P(1, 0, 0), P(0, 0, 0), P(0, 1, 0.0005)}, tol)
	require.NoError(t, err)
	h, err := k.FaceFromWire([]Point{P(0, 0, 0), P(1, 0, 0), P(1, 1, 0), P(0, 2, 0)}, tol)
	require.NoError(t, err)

	assert.True(t, k.IsSameFace(f, g, tol))
	assert.False(t, k.IsSameFace(f, h, tol))
}

func TestSharedEdgesAndVertices(t *testing.T) {
	k := NewKernel()
	f, err := k.FaceFromWire([]Point{P(0, 0, 0), P(1, 0, 0), P(1, 1, 0), P(0, 1, 0)}, tol)
	require.NoError(t, err)
	g, err := k.FaceFromWire([]Point{P(1, 0, 0), P(1, 1, 0), P(1, 1, 1), P(1, 0, 1)}, tol)
	require.NoError(t, err)

	assert.Equal(t, 1, k.SharedEdges(f, g, tol))
	assert.Equal(t, 2, k.SharedVertices(f.Loop, g.Loop, tol))
}

func TestSharedFacesPartialContact(t *testing.T) {
	k := NewKernel()
	cell := func(lo, hi Point) *Cell {
		c, err := k.CellFromFaces(boxFaces(t, k, lo, hi), tol)
		require.NoError(t, err)
		return c
	}
	long := cell(P(0, 0, 0), P(10, 0.2, 3))
	tee := cell(P(5, 0.2, 0), P(5.2, 4, 3))
	lower := cell(P(10, 0, 0), P(12, 0.2, 2))
	corner := cell(P(10, 0.2, 0), P(11, 1, 3))

	assert.Equal(t, 1, k.SharedFaces(long, tee, tol), "T-junction")
	assert.Equal(t, 1, k.SharedFaces(tee, long, tol))
	assert.Equal(t, 1, k.SharedFaces(long, lower, tol), "walls of unequal height")
	assert.Zero(t, k.SharedFaces(long, corner, tol), "contact along a line only")
}

func TestFacesOverlap(t *testing.T) {
	k := NewKernel()
	face := func(pts ...Point) *Face {
		f, err := k.FaceFromWire(pts, tol)
		require.NoError(t, err)
		return f
	}
	unit := face(P(0, 0, 0), P(1, 0, 0), P(1, 1, 0), P(0, 1, 0))
	shifted := face(P(0.5, 0.5, 0), P(1.5, 0.5, 0), P(1.5, 1.5, 0), P(0.5, 1.5, 0))
	raised := face(P(0.5, 0.5, 0.01), P(1.5, 0.5, 0.01), P(1.5, 1.5, 0.01), P(0.5, 1.5, 0.01))
	beside := face(P(1, 0, 0), P(2, 0, 0), P(2, 1, 0), P(1, 1, 0))

	assert.True(t, k.FacesOverlap(unit, shifted, tol))
	assert.InDelta(t, 0.25, OverlapArea(unit, shifted), 1e-9)
	assert.False(t, k.FacesOverlap(unit, raised, tol), "parallel planes")
	assert.False(t, k.FacesOverlap(unit, beside, tol), "common edge only")

	ell := face(P(0, 0, 0), P(2, 0, 0), P(2, 1, 0), P(1, 1, 0), P(1, 2, 0), P(0, 2, 0))
	notch := face(P(1, 1, 0), P(2, 1, 0), P(2, 2, 0), P(1, 2, 0))
	assert.InDelta(t, 0.75, OverlapArea(ell, shifted), 1e-9)
	assert.False(t, k.FacesOverlap(ell, notch, tol))

	wall := face(P(0, 0.2, 0), P(10, 0.2, 0), P(10, 0.2, 3), P(0, 0.2, 3))
	room := face(P(0, 0.2, 0), P(0, 0.2, 3), P(5, 0.2, 3), P(5, 0.2, 0))
	assert.InDelta(t, 15.0, OverlapArea(wall, room), 1e-9)
	assert.True(t, k.FacesOverlap(room, wall, tol))
}

func TestEdgesOverlap(t *testing.T) {
	k := NewKernel()
	base := Edge{P(0, 0, 0), P(4, 0, 0)}

	assert.True(t, k.EdgesOverlap(base, Edge{P(1, 0, 0), P(2, 0, 0)}, tol))
	assert.True(t, k.EdgesOverlap(base, Edge{P(3, 0, 0), P(1, 0, 0)}, tol), "direction is irrelevant")
	assert.True(t, k.EdgesOverlap(base, Edge{P(3, 0, 0), P(6, 0, 0)}, tol))
	assert.False(t, k.EdgesOverlap(base, Edge{P(4, 0, 0), P(5, 0, 0)}, tol), "common end point only")
	assert.False(t, k.EdgesOverlap(base, Edge{P(1, 0.01, 0), P(2, 0.01, 0)}, tol), "parallel offset")
	assert.False(t, k.EdgesOverlap(base, Edge{P(2, 0, 0), P(2, 1, 0)}, tol))
}

func TestVolumeContains(t *testing.T) {
	k := NewKernel()
	c, err := k.CellFromFaces(boxFaces(t, k, P(0, 0, 0), P(4, 4, 3)), tol)
	require.NoError(t, err)

	assert.True(t, k.VolumeContains(c, P(2, 2, 1.5), tol))
	assert.True(t, k.VolumeContains(c, P(1, 1, 1), tol))
	assert.True(t, k.VolumeContains(c, P(0, 2, 1), tol), "boundary points count as inside")
	assert.True(t, k.VolumeContains(c, P(4.0005, 2, 1), tol))
	assert.False(t, k.VolumeContains(c, P(5, 2, 1), tol))
	assert.False(t, k.VolumeContains(c, P(2, 2, 3.5), tol))
}

func TestEdgeFromVertices(t *testing.T) {
	k := NewKernel()
	e, err := k.EdgeFromVertices(P(0, 0, 0), P(0, 0, 3), tol)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, e.Length(), 1e-9)

	_, err = k.EdgeFromVertices(P(0, 0, 0), P(0, 0, 0.0001), tol)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestBoxPrefilter(t *testing.T) {
	a := BoxOf(P(0, 0, 0), P(1, 1, 1))
	b := BoxOf(P(1.0005, 0, 0), P(2, 1, 1))
	assert.True(t, a.Intersects(b, tol))
	assert.False(t, a.Intersects(BoxOf(P(3, 3, 3)), tol))
	assert.True(t, BoxOf(P(-1, -1, -1), P(2, 2, 2)).Contains(a, 0))
	assert.True(t, Box{}.Empty())
	assert.False(t, Box{}.Intersects(a, tol))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
