package topology

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/domain/model"
	"github.com/ismail-codar/IFC-GraphRAG-System/internal/geometry"
)

// Status is the outcome of converting one element.
type Status int

const (
	StatusConverted Status = iota
	StatusNoGeometry
	StatusFailed
	StatusKernelUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusNoGeometry:
		return "no_geometry"
	case StatusFailed:
		return "failed"
	case StatusKernelUnavailable:
		return "kernel_unavailable"
	}
	return "unknown"
}

// Conversion is the memoized result of converting an element. Handle is nil
// unless Status is StatusConverted. A failed conversion is a value, not an
// error: the element simply has no geometry for the rest of the session.
type Conversion struct {
	Handle *Handle
	Status Status
	Reason string
}

// OK reports whether a handle is available.
func (c *Conversion) OK() bool { return c != nil && c.Handle != nil }

// ConversionStats summarizes the cache content.
type ConversionStats struct {
	Total    int            `json:"total"`
	ByKind   map[string]int `json:"by_kind"`
	ByStatus map[string]int `json:"by_status"`
}

// Cache converts elements to handles once per session. It is owned by a
// single analysis pass and must not be shared between goroutines; Warm is
// the only entry point that fans out, and it merges on the caller.
type Cache struct {
	kernel  Kernel
	tol     float64
	logger  *zap.Logger
	entries map[string]*Conversion
}

// NewCache creates an empty cache. A nil kernel yields a cache that records
// every element as kernel_unavailable.
func NewCache(kernel Kernel, tol float64, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		kernel:  kernel,
		tol:     tol,
		logger:  logger.Named("cache"),
		entries: make(map[string]*Conversion),
	}
}

// Convert returns the conversion for el, computing it on first access.
func (c *Cache) Convert(el model.Element) *Conversion {
	if conv, ok := c.entries[el.ID]; ok {
		return conv
	}
	conv := convertElement(c.kernel, el, c.tol)
	c.store(el, conv)
	return conv
}

// Lookup returns a previously computed conversion.
func (c *Cache) Lookup(id string) (*Conversion, bool) {
	conv, ok := c.entries[id]
	return conv, ok
}

// Warm converts every element not yet cached, splitting the work into
// disjoint batches processed by up to workers goroutines. Results are merged
// after all batches finish; on cancellation nothing is stored.
func (c *Cache) Warm(ctx context.Context, elements []model.Element, workers int) error {
	pending := make([]model.Element, 0, len(elements))
	seen := make(map[string]bool, len(elements))
	for _, el := range elements {
		if _, ok := c.entries[el.ID]; ok || seen[el.ID] {
			continue
		}
		seen[el.ID] = true
		pending = append(pending, el)
	}
	if len(pending) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]*Conversion, len(pending))
	batchSize := (len(pending) + workers - 1) / workers
	numBatches := (len(pending) + batchSize - 1) / batchSize
	c.logger.Debug("Warming conversion cache",
		zap.Int("elements", len(pending)), zap.Int("batches", numBatches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = convertElement(c.kernel, pending[i], c.tol)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warm conversion cache: %w", err)
	}
	for i, el := range pending {
		c.store(el, results[i])
	}
	return nil
}

// Stats counts cached conversions by handle kind and status.
func (c *Cache) Stats() ConversionStats {
	s := ConversionStats{ByKind: map[string]int{}, ByStatus: map[string]int{}}
	for _, conv := range c.entries {
		s.Total++
		s.ByStatus[conv.Status.String()]++
		if conv.Handle != nil {
			s.ByKind[conv.Handle.Kind.String()]++
		}
	}
	return s
}

func (c *Cache) store(el model.Element, conv *Conversion) {
	c.entries[el.ID] = conv
	if conv.Status == StatusFailed {
		c.logger.Debug("Element has no usable geometry",
			zap.String("element", el.ID),
			zap.String("type", string(el.Type)),
			zap.String("reason", conv.Reason))
	}
}

// convertElement applies the conversion policy: cell, then the dominant
// face, then for linear members a curve.
func convertElement(k Kernel, el model.Element, tol float64) *Conversion {
	if k == nil {
		return &Conversion{Status: StatusKernelUnavailable, Reason: "geometry kernel not configured"}
	}
	g := el.Geometry
	if g == nil || len(g.Vertices) == 0 {
		return &Conversion{Status: StatusNoGeometry, Reason: "element has no geometry"}
	}

	pts := make([]geometry.Point, len(g.Vertices))
	for i, v := range g.Vertices {
		pts[i] = geometry.P(v[0], v[1], v[2])
	}

	var reasons []string
	faces, skipped := buildFaces(k, g.Faces, pts, tol)
	if skipped > 0 {
		reasons = append(reasons, fmt.Sprintf("%d faces skipped", skipped))
	}

	if len(pts) >= 4 && len(faces) >= 4 {
		cell, err := k.CellFromFaces(faces, tol)
		if err == nil {
			return &Conversion{Handle: newCellHandle(el, cell), Status: StatusConverted}
		}
		reasons = append(reasons, "cell: "+err.Error())
	} else {
		reasons = append(reasons, fmt.Sprintf("cell: %d vertices, %d faces", len(pts), len(faces)))
	}

	if len(pts) >= 3 && len(faces) > 0 {
		return &Conversion{Handle: newFaceHandle(el, dominantFace(faces)), Status: StatusConverted}
	}
	reasons = append(reasons, "face: no valid polygon")

	if el.Type.IsLinear() {
		h, err := buildCurve(k, el, g.Faces, pts, tol)
		if err == nil {
			return &Conversion{Handle: h, Status: StatusConverted}
		}
		reasons = append(reasons, "curve: "+err.Error())
	}
	return &Conversion{Status: StatusFailed, Reason: strings.Join(reasons, "; ")}
}

// buildFaces turns index lists into faces, skipping lists that are too
// short, reference missing vertices or that the kernel rejects.
func buildFaces(k Kernel, lists [][]int, pts []geometry.Point, tol float64) ([]*geometry.Face, int) {
	var faces []*geometry.Face
	skipped := 0
	for _, idx := range lists {
		if len(idx) > 1 && idx[0] == idx[len(idx)-1] {
			idx = idx[:len(idx)-1]
		}
		wire, ok := resolve(idx, pts)
		if !ok || len(wire) < 3 {
			skipped++
			continue
		}
		f, err := k.FaceFromWire(wire, tol)
		if err != nil {
			skipped++
			continue
		}
		faces = append(faces, f)
	}
	return faces, skipped
}

func resolve(idx []int, pts []geometry.Point) ([]geometry.Point, bool) {
	wire := make([]geometry.Point, 0, len(idx))
	for _, i := range idx {
		if i < 0 || i >= len(pts) {
			return nil, false
		}
		wire = append(wire, pts[i])
	}
	return wire, true
}

func dominantFace(faces []*geometry.Face) *geometry.Face {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() {
			best = f
		}
	}
	return best
}

var errNoCurve = errors.New("fewer than 2 distinct vertices")

// buildCurve produces a cluster when the index lists describe several
// disjoint polylines, otherwise a single edge between the two farthest
// vertices.
func buildCurve(k Kernel, el model.Element, lists [][]int, pts []geometry.Point, tol float64) (*Handle, error) {
	if len(pts) < 2 {
		return nil, errNoCurve
	}
	if parts := polylineComponents(lists, len(pts)); len(parts) > 1 {
		var edges []geometry.Edge
		for _, part := range parts {
			sub := make([]geometry.Point, len(part))
			for i, vi := range part {
				sub[i] = pts[vi]
			}
			a, b := extremes(sub)
			if e, err := k.EdgeFromVertices(a, b, tol); err == nil {
				edges = append(edges, *e)
			}
		}
		if len(edges) > 1 {
			return newClusterHandle(el, edges), nil
		}
	}
	a, b := extremes(pts)
	e, err := k.EdgeFromVertices(a, b, tol)
	if err != nil {
		return nil, err
	}
	return newEdgeHandle(el, e), nil
}

// polylineComponents groups the vertex indices of every list with at least
// two valid entries into connected components.
func polylineComponents(lists [][]int, n int) [][]int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	used := make([]bool, n)
	for _, idx := range lists {
		var valid []int
		for _, i := range idx {
			if i >= 0 && i < n {
				valid = append(valid, i)
			}
		}
		if len(valid) < 2 {
			continue
		}
		for _, i := range valid {
			used[i] = true
			parent[find(i)] = find(valid[0])
		}
	}
	groups := map[int][]int{}
	var order []int
	for i := 0; i < n; i++ {
		if !used[i] {
			continue
		}
		r := find(i)
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], i)
	}
	out := make([][]int, 0, len(order))
	for _, r := range order {
		out = append(out, groups[r])
	}
	return out
}

// extremes returns the two points farthest apart.
func extremes(pts []geometry.Point) (geometry.Point, geometry.Point) {
	a, b := pts[0], pts[len(pts)-1]
	best := -1.0
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if d := pts[i].Distance(pts[j]); d > best {
				best, a, b = d, pts[i], pts[j]
			}
		}
	}
	return a, b
}
