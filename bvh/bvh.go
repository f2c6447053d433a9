// Package bvh implements a linear bounding volume hierarchy built from a
// Morton sorted binary radix tree. Candidate queries run in two passes
// (count, then fill) so that output buffers are sized exactly.
//
// Typical use:
//
//	tree, err := bvh.New(3, boxes, parallel.Threads{})
//	err = tree.Build()
//	offsets, counts := make([]int, n), make([]int, n)
//	candidates, err := tree.Find(offsets, counts, x, y, z)
//	// candidates of point i: candidates[offsets[i]:offsets[i]+counts[i]]
package bvh

import (
	"errors"
	"fmt"

	"github.com/soypat/hpcgeom/internal/log"
	"github.com/soypat/hpcgeom/parallel"
	"golang.org/x/exp/constraints"
)

// DefaultScaleFactor is the factor boxes are scaled by about their center
// before the tree is built.
const DefaultScaleFactor = 1.001

var (
	ErrNoItems        = errors.New("bvh: no boxes")
	ErrDimension      = errors.New("bvh: dimension must be 2 or 3")
	ErrNotBuilt       = errors.New("bvh: tree not built")
	ErrAlreadyBuilt   = errors.New("bvh: tree already built")
	ErrBufferSize     = errors.New("bvh: buffer size mismatch")
	ErrNilCoordinates = errors.New("bvh: nil coordinate slice")
	ErrBadScale       = errors.New("bvh: scale factor must be positive and finite")
)

var logger = log.New("bvh")

// BVH is a bounding volume hierarchy over a set of axis aligned boxes in
// 2 or 3 dimensions. It is immutable once built.
type BVH[T constraints.Float] struct {
	dims   int
	nItems int
	boxes  []T
	scale  T
	space  parallel.Space
	built  bool
	bounds aabb[T]
	lin    *linearBVH[T]
}

// New creates an unbuilt BVH over boxes, a flat buffer with 2*dims values
// per box laid out as [min..., max...]. The buffer is copied. A nil space
// selects parallel.Sequential.
func New[T constraints.Float](dims int, boxes []T, space parallel.Space) (*BVH[T], error) {
	if dims != 2 && dims != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrDimension, dims)
	}
	if len(boxes) == 0 {
		return nil, ErrNoItems
	}
	if len(boxes)%(2*dims) != 0 {
		return nil, fmt.Errorf("%w: %d values is not a multiple of %d", ErrBufferSize, len(boxes), 2*dims)
	}
	if space == nil {
		space = parallel.Sequential{}
	}
	return &BVH[T]{
		dims:   dims,
		nItems: len(boxes) / (2 * dims),
		boxes:  append([]T(nil), boxes...),
		scale:  DefaultScaleFactor,
		space:  space,
	}, nil
}

// SetScaleFactor sets the factor boxes are scaled by before building.
func (b *BVH[T]) SetScaleFactor(k T) error {
	if b.built {
		return ErrAlreadyBuilt
	}
	if !(k > 0) || k-k != 0 {
		return fmt.Errorf("%w: got %v", ErrBadScale, k)
	}
	b.scale = k
	return nil
}

func (b *BVH[T]) ScaleFactor() T { return b.scale }

// Dims returns the spatial dimension of the tree.
func (b *BVH[T]) Dims() int { return b.dims }

// Len returns the number of items indexed.
func (b *BVH[T]) Len() int { return b.nItems }

// Build constructs the tree. It may be called once.
func (b *BVH[T]) Build() error {
	if b.built {
		return ErrAlreadyBuilt
	}
	boxes, n := b.boxes, b.nItems
	if n == 1 {
		// A binary tree needs two leaves. The copy has item index 1 which
		// queries discard.
		boxes = append(boxes[:len(boxes):len(boxes)], boxes...)
		n = 2
	}
	global, rt := buildRadixTree(b.space, b.dims, boxes, n, b.scale)
	b.lin = emitBVH(b.space, rt)
	b.bounds = global
	b.built = true
	logger.Debugf("built %dD tree over %d items: %d inner nodes, scale %v, space %v",
		b.dims, b.nItems, b.lin.numInner(), b.scale, b.space)
	return nil
}

// Bounds returns the corners of the box enclosing every scaled item box.
func (b *BVH[T]) Bounds() (min, max []T, err error) {
	if !b.built {
		return nil, nil, ErrNotBuilt
	}
	min = append([]T(nil), b.bounds.min[:b.dims]...)
	max = append([]T(nil), b.bounds.max[:b.dims]...)
	return min, max, nil
}

// Stats summarizes the shape of a built tree.
type Stats struct {
	Items      int
	InnerNodes int
	Leaves     int
	// Depth is the largest number of inner nodes on a root to leaf path.
	Depth int
}

func (b *BVH[T]) Stats() (Stats, error) {
	if !b.built {
		return Stats{}, ErrNotBuilt
	}
	st := Stats{
		Items:      b.nItems,
		InnerNodes: b.lin.numInner(),
		Leaves:     len(b.lin.leaves),
	}
	type entry struct{ node, depth int32 }
	stack := []entry{{0, 1}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		st.Depth = max(st.Depth, int(e.depth))
		for _, c := range b.lin.children[2*e.node : 2*e.node+2] {
			if c >= 0 {
				stack = append(stack, entry{c, e.depth + 1})
			}
		}
	}
	return st, nil
}
