package meshio

import (
	"fmt"
	"math"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/hpcgeom/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Weld merges triangle corners closer than about tol into shared vertices
// and returns the vertex positions and a flat connectivity array of three
// vertex indices per triangle. A zero tol is inferred from the shortest
// triangle edge. Triangles that collapse after welding are dropped.
func Weld(tris []ms3.Triangle, tol float32) (points []r3.Vec, conn []int, err error) {
	if len(tris) == 0 {
		return nil, nil, ErrEmpty
	}
	bb := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	minEdge2, maxEdge2 := math.MaxFloat64, 0.0
	for _, t := range tris {
		for j := range t {
			v := vec64(t[j])
			bb = bb.Include(v)
			e2 := r3.Norm2(r3.Sub(vec64(t[(j+1)%3]), v))
			minEdge2 = math.Min(minEdge2, e2)
			maxEdge2 = math.Max(maxEdge2, e2)
		}
	}
	res := float64(tol)
	switch {
	case res < 0 || math.IsNaN(res):
		return nil, nil, fmt.Errorf("%w: %g", ErrTolerance, tol)
	case res == 0:
		res = math.Sqrt(minEdge2) / 256
		if res == 0 {
			return nil, nil, fmt.Errorf("%w: cannot infer tolerance from zero length edge", ErrTolerance)
		}
	case res > math.Sqrt(maxEdge2)/2:
		return nil, nil, fmt.Errorf("%w: %g too large for model, suggested %g", ErrTolerance, tol, math.Sqrt(minEdge2)/256)
	}
	if d3.Max(bb.Size())/res > math.MaxInt64/2 {
		return nil, nil, fmt.Errorf("%w: %g too small for model size", ErrTolerance, tol)
	}

	// Vertices are keyed by their position rounded to the tolerance grid.
	cache := make(map[[3]int64]int, len(tris)/2+1)
	conn = make([]int, 0, 3*len(tris))
	ri := 1 / res
	dropped := 0
	for _, t := range tris {
		var ids [3]int
		for j := range t {
			v := vec64(t[j])
			key := [3]int64{
				int64(math.Round(v.X * ri)),
				int64(math.Round(v.Y * ri)),
				int64(math.Round(v.Z * ri)),
			}
			id, ok := cache[key]
			if !ok {
				id = len(points)
				cache[key] = id
				points = append(points, v)
			}
			ids[j] = id
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			dropped++
			continue
		}
		conn = append(conn, ids[:]...)
	}
	if dropped > 0 {
		logger.Warningf("weld dropped %d collapsed triangles", dropped)
	}
	logger.Debugf("welded %d triangles into %d vertices at tolerance %g", len(tris), len(points), res)
	return points, conn, nil
}

func vec64(v ms3.Vec) r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}
