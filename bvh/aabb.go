package bvh

import (
	"math"

	"golang.org/x/exp/constraints"
)

// aabb is an axis aligned box. 2D boxes keep a zero Z extent so that every
// predicate can be evaluated over three axes.
type aabb[T constraints.Float] struct {
	min, max [3]T
}

func emptyBox[T constraints.Float]() aabb[T] {
	inf := T(math.Inf(1))
	return aabb[T]{
		min: [3]T{inf, inf, inf},
		max: [3]T{-inf, -inf, -inf},
	}
}

// loadBox reads the i'th box of a flat [min..., max...] buffer.
func loadBox[T constraints.Float](dims int, flat []T, i int) (b aabb[T]) {
	off := 2 * dims * i
	copy(b.min[:dims], flat[off:off+dims])
	copy(b.max[:dims], flat[off+dims:off+2*dims])
	return b
}

func (a aabb[T]) union(b aabb[T]) aabb[T] {
	for i := 0; i < 3; i++ {
		a.min[i] = min(a.min[i], b.min[i])
		a.max[i] = max(a.max[i], b.max[i])
	}
	return a
}

func (a aabb[T]) center() (c [3]T) {
	for i := 0; i < 3; i++ {
		c[i] = (a.min[i] + a.max[i]) / 2
	}
	return c
}

// scaled returns the box scaled by k about its center.
func (a aabb[T]) scaled(k T) aabb[T] {
	c := a.center()
	for i := 0; i < 3; i++ {
		half := k * (a.max[i] - a.min[i]) / 2
		a.min[i] = c[i] - half
		a.max[i] = c[i] + half
	}
	return a
}

// contains reports whether p lies in the box, bounds inclusive.
func (a aabb[T]) contains(p [3]T) bool {
	return a.min[0] <= p[0] && p[0] <= a.max[0] &&
		a.min[1] <= p[1] && p[1] <= a.max[1] &&
		a.min[2] <= p[2] && p[2] <= a.max[2]
}

// overlaps reports whether the boxes share at least one point.
func (a aabb[T]) overlaps(b aabb[T]) bool {
	return a.min[0] <= b.max[0] && b.min[0] <= a.max[0] &&
		a.min[1] <= b.max[1] && b.min[1] <= a.max[1] &&
		a.min[2] <= b.max[2] && b.min[2] <= a.max[2]
}
