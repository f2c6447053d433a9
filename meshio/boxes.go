package meshio

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/hpcgeom/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// TriangleBoxes returns the bounding box of each triangle.
func TriangleBoxes(tris []ms3.Triangle) []ms3.Box {
	boxes := make([]ms3.Box, len(tris))
	for i, t := range tris {
		boxes[i] = ms3.Box{
			Min: ms3.MinElem(t[0], ms3.MinElem(t[1], t[2])),
			Max: ms3.MaxElem(t[0], ms3.MaxElem(t[1], t[2])),
		}
	}
	return boxes
}

// ElementBoxes3D returns the bounding boxes of the elements of a flat
// connectivity array with vertsPerElem point indices per element, laid out
// as min and max corners in the order bvh.New expects.
func ElementBoxes3D(points []r3.Vec, conn []int, vertsPerElem int) ([]float64, error) {
	if vertsPerElem <= 0 || len(conn)%vertsPerElem != 0 {
		return nil, fmt.Errorf("connectivity of length %d does not hold %d indices per element", len(conn), vertsPerElem)
	}
	flat := make([]float64, 0, 6*len(conn)/vertsPerElem)
	for e := 0; e < len(conn); e += vertsPerElem {
		var bb d3.Box
		for k, idx := range conn[e : e+vertsPerElem] {
			if idx < 0 || idx >= len(points) {
				return nil, fmt.Errorf("element %d references point %d of %d", e/vertsPerElem, idx, len(points))
			}
			if k == 0 {
				bb = d3.Box{Min: points[idx], Max: points[idx]}
				continue
			}
			bb = bb.Include(points[idx])
		}
		flat = append(flat, bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z)
	}
	return flat, nil
}
