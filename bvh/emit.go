package bvh

import (
	"github.com/soypat/hpcgeom/parallel"
	"golang.org/x/exp/constraints"
)

type vec4[T constraints.Float] [4]T

// nodeVecs is the number of vec4 holding the two child boxes of an inner node:
//
//	[lmin.x lmin.y lmin.z lmax.x]
//	[lmax.y lmax.z rmin.x rmin.y]
//	[rmin.z rmax.x rmax.y rmax.z]
const nodeVecs = 3

// linearBVH is the traversal form of the tree. Inner node 0 is the root.
type linearBVH[T constraints.Float] struct {
	nodes []vec4[T]
	// children holds the left and right child of every inner node. Negative
	// links are leaves: leaves[^link] is the item index.
	children []int32
	leaves   []int32
}

func (lb *linearBVH[T]) numInner() int { return len(lb.children) / 2 }

// childBoxes unpacks the child boxes of inner node i.
func (lb *linearBVH[T]) childBoxes(i int32) (l, r aabb[T]) {
	v := lb.nodes[nodeVecs*int(i) : nodeVecs*int(i)+nodeVecs]
	l.min = [3]T{v[0][0], v[0][1], v[0][2]}
	l.max = [3]T{v[0][3], v[1][0], v[1][1]}
	r.min = [3]T{v[1][2], v[1][3], v[2][0]}
	r.max = [3]T{v[2][1], v[2][2], v[2][3]}
	return l, r
}

func packNode[T constraints.Float](dst []vec4[T], l, r aabb[T]) {
	dst[0] = vec4[T]{l.min[0], l.min[1], l.min[2], l.max[0]}
	dst[1] = vec4[T]{l.max[1], l.max[2], r.min[0], r.min[1]}
	dst[2] = vec4[T]{r.min[2], r.max[0], r.max[1], r.max[2]}
}

// emitBVH flattens a radix tree into its linear form. Inner node numbering
// of the radix tree is kept, so the root stays at 0.
func emitBVH[T constraints.Float](s parallel.Space, rt *radixTree[T]) *linearBVH[T] {
	ni := rt.innerSize()
	lb := &linearBVH[T]{
		nodes:    make([]vec4[T], nodeVecs*ni),
		children: make([]int32, 2*ni),
		leaves:   make([]int32, rt.size()),
	}
	s.For(ni, func(i int) {
		l, r := rt.left[i], rt.right[i]
		packNode(lb.nodes[nodeVecs*i:], rt.childBox(l), rt.childBox(r))
		lb.children[2*i] = l
		lb.children[2*i+1] = r
	})
	copy(lb.leaves, rt.leafIDs)
	return lb
}

// traverse walks the tree from the root with an explicit stack. A child is
// entered when its predicate accepts the child's box; leaf is called with
// the item index of every accepted leaf.
func (lb *linearBVH[T]) traverse(leftCheck, rightCheck func(aabb[T]) bool, leaf func(item int32)) {
	var buf [64]int32
	stack := append(buf[:0], 0)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lbox, rbox := lb.childBoxes(node)
		l, r := lb.children[2*node], lb.children[2*node+1]
		if rightCheck(rbox) {
			if r < 0 {
				leaf(lb.leaves[^r])
			} else {
				stack = append(stack, r)
			}
		}
		if leftCheck(lbox) {
			if l < 0 {
				leaf(lb.leaves[^l])
			} else {
				stack = append(stack, l)
			}
		}
	}
}
