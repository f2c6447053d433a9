package bvh

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// FlattenR2 lays out 2D boxes in the flat buffer format New expects.
func FlattenR2(boxes []r2.Box) []float64 {
	flat := make([]float64, 0, 4*len(boxes))
	for _, b := range boxes {
		flat = append(flat, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}
	return flat
}

// FlattenR3 lays out 3D boxes in the flat buffer format New expects.
func FlattenR3(boxes []r3.Box) []float64 {
	flat := make([]float64, 0, 6*len(boxes))
	for _, b := range boxes {
		flat = append(flat, b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	}
	return flat
}

// FlattenMS3 lays out single precision 3D boxes in the flat buffer format
// New expects. Boxes with NaN or infinite corners are rejected.
func FlattenMS3(boxes []ms3.Box) ([]float32, error) {
	flat := make([]float32, 0, 6*len(boxes))
	for i, b := range boxes {
		if badVec32(b.Min) || badVec32(b.Max) {
			return nil, fmt.Errorf("box %d has inf/NaN corner", i)
		}
		flat = append(flat, b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	}
	return flat, nil
}

func badVec32(v ms3.Vec) bool {
	return math32.IsNaN(v.X) || math32.IsInf(v.X, 0) ||
		math32.IsNaN(v.Y) || math32.IsInf(v.Y, 0) ||
		math32.IsNaN(v.Z) || math32.IsInf(v.Z, 0)
}
