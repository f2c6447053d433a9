// Package d2 holds axis aligned box and element-wise vector helpers for
// gonum r2 types.
package d2

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Box is a 2d bounding box.
type Box r2.Box

// NewBox creates a 2d box with a given center and size.
func NewBox(center, size r2.Vec) Box {
	half := r2.Scale(0.5, size)
	return Box{r2.Sub(center, half), r2.Add(center, half)}
}

// Extend returns a box enclosing two 2d boxes.
func (a Box) Extend(b Box) Box {
	return Box{
		Min: MinElem(a.Min, b.Min),
		Max: MaxElem(a.Max, b.Max),
	}
}

// Size returns the size of a 2d box.
func (a Box) Size() r2.Vec {
	return r2.Sub(a.Max, a.Min)
}

// Center returns the center of a 2d box.
func (a Box) Center() r2.Vec {
	return r2.Add(a.Min, r2.Scale(0.5, a.Size()))
}

// Contains checks if the 2d box contains the given vector (considering bounds as inside).
func (a Box) Contains(v r2.Vec) bool {
	return a.Min.X <= v.X && a.Min.Y <= v.Y &&
		v.X <= a.Max.X && v.Y <= a.Max.Y
}

// Vertices returns the corners of a 2d box in counter clockwise order
// starting at the minimum corner.
func (a Box) Vertices() []r2.Vec {
	return []r2.Vec{
		a.Min,
		{X: a.Max.X, Y: a.Min.Y},
		a.Max,
		{X: a.Min.X, Y: a.Max.Y},
	}
}

// Random returns a random point within a bounding box.
func (a Box) Random(rng *rand.Rand) r2.Vec {
	return r2.Vec{
		X: a.Min.X + (a.Max.X-a.Min.X)*rng.Float64(),
		Y: a.Min.Y + (a.Max.Y-a.Min.Y)*rng.Float64(),
	}
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
}

// LTEZero returns true if any vector components are <= 0.
func LTEZero(a r2.Vec) bool {
	return (a.X <= 0) || (a.Y <= 0)
}
