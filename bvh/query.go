package bvh

import (
	"fmt"

	"github.com/soypat/hpcgeom/parallel"
)

// Find returns the candidate items of the query points (x[i], y[i], z[i]).
// z may be nil for 2D trees. offsets and counts must hold at least len(x)
// entries; on return the candidates of point i are
//
//	candidates[offsets[i] : offsets[i]+counts[i]]
//
// in traversal order. An item is a candidate when the point lies inside its
// scaled box, bounds included.
func (b *BVH[T]) Find(offsets, counts []int, x, y, z []T) ([]int, error) {
	if !b.built {
		return nil, ErrNotBuilt
	}
	if x == nil || y == nil || (b.dims == 3 && z == nil) {
		return nil, ErrNilCoordinates
	}
	n := len(x)
	if len(y) != n || (z != nil && len(z) != n) {
		return nil, fmt.Errorf("%w: coordinate lengths %d, %d, %d", ErrBufferSize, len(x), len(y), len(z))
	}
	if len(offsets) < n || len(counts) < n {
		return nil, fmt.Errorf("%w: need %d offsets and counts", ErrBufferSize, n)
	}
	useZ := b.dims == 3
	point := func(i int) (p [3]T) {
		p[0], p[1] = x[i], y[i]
		if useZ {
			p[2] = z[i]
		}
		return p
	}
	return b.candidates(offsets[:n], counts[:n], func(i int, visit func(int32)) {
		p := point(i)
		check := func(box aabb[T]) bool { return box.contains(p) }
		b.lin.traverse(check, check, visit)
	}), nil
}

// FindBoxes returns the candidate items of the query boxes, a flat buffer
// laid out like the build input. An item is a candidate when its scaled box
// overlaps the query box, touching boundaries included. Query boxes are not
// scaled.
func (b *BVH[T]) FindBoxes(offsets, counts []int, boxes []T) ([]int, error) {
	if !b.built {
		return nil, ErrNotBuilt
	}
	if boxes == nil {
		return nil, ErrNilCoordinates
	}
	stride := 2 * b.dims
	if len(boxes)%stride != 0 {
		return nil, fmt.Errorf("%w: %d values is not a multiple of %d", ErrBufferSize, len(boxes), stride)
	}
	n := len(boxes) / stride
	if len(offsets) < n || len(counts) < n {
		return nil, fmt.Errorf("%w: need %d offsets and counts", ErrBufferSize, n)
	}
	return b.candidates(offsets[:n], counts[:n], func(i int, visit func(int32)) {
		q := loadBox(b.dims, boxes, i)
		check := func(box aabb[T]) bool { return box.overlaps(q) }
		b.lin.traverse(check, check, visit)
	}), nil
}

// Traverse calls visit with every candidate item of a single point, which
// must have Dims() coordinates.
func (b *BVH[T]) Traverse(point []T, visit func(item int)) error {
	if !b.built {
		return ErrNotBuilt
	}
	if len(point) != b.dims {
		return fmt.Errorf("%w: point has %d coordinates", ErrBufferSize, len(point))
	}
	var p [3]T
	copy(p[:], point)
	check := func(box aabb[T]) bool { return box.contains(p) }
	b.lin.traverse(check, check, func(item int32) {
		if int(item) < b.nItems {
			visit(int(item))
		}
	})
	return nil
}

// candidates runs the count, offset and fill passes. query traverses the
// tree for query i calling visit on every accepted leaf.
func (b *BVH[T]) candidates(offsets, counts []int, query func(i int, visit func(item int32))) []int {
	n := len(counts)
	nItems := int32(b.nItems)
	total := parallel.Sum(b.space, n, func(i int) int {
		count := 0
		query(i, func(item int32) {
			if item < nItems {
				count++
			}
		})
		counts[i] = count
		return count
	})
	parallel.ExclusiveScan(b.space, offsets, counts)
	candidates := make([]int, total)
	b.space.For(n, func(i int) {
		off := offsets[i]
		query(i, func(item int32) {
			if item < nItems {
				candidates[off] = int(item)
				off++
			}
		})
	})
	return candidates
}
