package bvh

import (
	"cmp"
	"math/bits"
	"slices"
	"sync/atomic"

	"github.com/soypat/hpcgeom/parallel"
	"golang.org/x/exp/constraints"
)

// radixTree is a binary radix tree over Morton sorted leaves. Inner node 0
// is the root. Child links are inner node indices when non-negative and
// ^leaf (bitwise complement of the sorted leaf position) when negative.
type radixTree[T constraints.Float] struct {
	// Per sorted leaf.
	leafIDs   []int32
	codes     []uint32
	leafBoxes []aabb[T]
	// Per inner node.
	left, right []int32
	innerBoxes  []aabb[T]
	// parents of inner nodes in [0,n-1) followed by leaves in [n-1, 2n-1).
	// The root's parent is -1.
	parents []int32
}

func (rt *radixTree[T]) size() int      { return len(rt.leafIDs) }
func (rt *radixTree[T]) innerSize() int { return len(rt.left) }

func (rt *radixTree[T]) childBox(c int32) aabb[T] {
	if c < 0 {
		return rt.leafBoxes[^c]
	}
	return rt.innerBoxes[c]
}

// buildRadixTree builds a radix tree over the first n boxes of the flat
// buffer, after scaling each box about its center by scale. It returns the
// bounds of all scaled boxes. n must be at least 2.
func buildRadixTree[T constraints.Float](s parallel.Space, dims int, boxes []T, n int, scale T) (aabb[T], *radixTree[T]) {
	if n < 2 {
		panic("bug: radix tree needs at least two leaves")
	}
	scaled := make([]aabb[T], n)
	s.For(n, func(i int) {
		scaled[i] = loadBox(dims, boxes, i).scaled(scale)
	})

	global := parallel.Reduce(s, n, emptyBox[T](),
		func(i int) aabb[T] { return scaled[i] },
		func(a, b aabb[T]) aabb[T] { return a.union(b) },
	)

	codes := make([]uint32, n)
	s.For(n, func(i int) {
		codes[i] = mortonCode(dims, normalize(global, scaled[i].center()))
	})

	// Sort by code with ties broken by item index.
	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	slices.SortFunc(order, func(a, b int32) int {
		if c := cmp.Compare(codes[a], codes[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	rt := &radixTree[T]{
		leafIDs:    order,
		codes:      make([]uint32, n),
		leafBoxes:  make([]aabb[T], n),
		left:       make([]int32, n-1),
		right:      make([]int32, n-1),
		innerBoxes: make([]aabb[T], n-1),
		parents:    make([]int32, 2*n-1),
	}
	s.For(n, func(i int) {
		rt.codes[i] = codes[order[i]]
		rt.leafBoxes[i] = scaled[order[i]]
	})
	rt.parents[0] = -1
	s.For(n-1, rt.buildInner)
	rt.propagateBoxes(s)
	return global, rt
}

// normalize maps p into the unit cube spanned by bounds. Degenerate axes
// map to zero.
func normalize[T constraints.Float](bounds aabb[T], p [3]T) (u [3]T) {
	for i := 0; i < 3; i++ {
		ext := bounds.max[i] - bounds.min[i]
		if ext > 0 {
			u[i] = (p[i] - bounds.min[i]) / ext
		}
	}
	return u
}

func mortonCode[T constraints.Float](dims int, p [3]T) uint32 {
	if dims == 2 {
		return morton2(p)
	}
	return morton3(p)
}

// delta returns the length of the common prefix between the keys of leaves
// i and j, or -1 when j is out of range. Keys are the Morton code extended
// with the leaf position so that duplicate codes still have a distinct
// ordering.
func (rt *radixTree[T]) delta(i, j int) int {
	if j < 0 || j >= len(rt.codes) {
		return -1
	}
	a, b := rt.codes[i], rt.codes[j]
	if a == b {
		return 32 + bits.LeadingZeros32(uint32(i^j))
	}
	return bits.LeadingZeros32(a ^ b)
}

// buildInner determines the range and split of inner node i, following
// Karras, "Maximizing Parallelism in the Construction of BVHs, Octrees,
// and k-d Trees" (2012).
func (rt *radixTree[T]) buildInner(i int) {
	// Direction of the range.
	d := 1
	if rt.delta(i, i+1) < rt.delta(i, i-1) {
		d = -1
	}
	// Upper bound for the range length.
	dmin := rt.delta(i, i-d)
	lmax := 2
	for rt.delta(i, i+lmax*d) > dmin {
		lmax *= 2
	}
	// Binary search for the other end.
	l := 0
	for t := lmax / 2; t >= 1; t /= 2 {
		if rt.delta(i, i+(l+t)*d) > dmin {
			l += t
		}
	}
	j := i + l*d
	// Binary search for the split position.
	dnode := rt.delta(i, j)
	split := 0
	for div := 2; ; div *= 2 {
		t := (l + div - 1) / div
		if rt.delta(i, i+(split+t)*d) > dnode {
			split += t
		}
		if t <= 1 {
			break
		}
	}
	gamma := i + split*d + min(d, 0)

	first, last := min(i, j), max(i, j)
	inner := len(rt.left)
	var left, right int32
	if first == gamma {
		left = ^int32(gamma)
		rt.parents[inner+gamma] = int32(i)
	} else {
		left = int32(gamma)
		rt.parents[gamma] = int32(i)
	}
	if last == gamma+1 {
		right = ^int32(gamma + 1)
		rt.parents[inner+gamma+1] = int32(i)
	} else {
		right = int32(gamma + 1)
		rt.parents[gamma+1] = int32(i)
	}
	rt.left[i] = left
	rt.right[i] = right
}

// propagateBoxes computes inner node boxes bottom-up. Each leaf climbs
// towards the root; the first lane to reach a node stops there and the
// second one, which is guaranteed to see both children done, continues.
func (rt *radixTree[T]) propagateBoxes(s parallel.Space) {
	inner := rt.innerSize()
	arrivals := make([]atomic.Int32, inner)
	s.For(rt.size(), func(leaf int) {
		node := rt.parents[inner+leaf]
		for node >= 0 {
			if arrivals[node].Add(1) == 1 {
				return
			}
			rt.innerBoxes[node] = rt.childBox(rt.left[node]).union(rt.childBox(rt.right[node]))
			node = rt.parents[node]
		}
	})
}
