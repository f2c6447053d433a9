package bvh

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Bins calls visit with the bounds of every bin of the tree: the root
// bounds at level 0, then both child boxes of every inner node at the
// node's depth plus one, left subtree first. min and max hold Dims values
// and are reused between calls.
func (b *BVH[T]) Bins(visit func(level int, min, max []T)) error {
	if !b.built {
		return ErrNotBuilt
	}
	lo, hi := make([]T, b.dims), make([]T, b.dims)
	emit := func(box aabb[T], level int) {
		copy(lo, box.min[:b.dims])
		copy(hi, box.max[:b.dims])
		visit(level, lo, hi)
	}
	emit(b.bounds, 0)
	type entry struct {
		node  int32
		level int
	}
	stack := []entry{{0, 1}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		l, r := b.lin.childBoxes(e.node)
		emit(l, e.level)
		emit(r, e.level)
		// Push right first so the left subtree is visited first.
		for _, c := range [2]int32{b.lin.children[2*e.node+1], b.lin.children[2*e.node]} {
			if c >= 0 {
				stack = append(stack, entry{c, e.level + 1})
			}
		}
	}
	return nil
}

// WriteVTK writes every bin of the tree, as enumerated by Bins, as a legacy
// ASCII VTK unstructured grid. Bins are quads in 2D and hexahedra in 3D,
// with the level attached as cell data.
func (b *BVH[T]) WriteVTK(w io.Writer) error {
	var (
		points, cells, levels bytes.Buffer
		npoints, nbins        int
	)
	cornersPerBin := 4
	cellType := 9 // VTK_QUAD
	if b.dims == 3 {
		cornersPerBin = 8
		cellType = 12 // VTK_HEXAHEDRON
	}
	err := b.Bins(func(level int, min, max []T) {
		var lo, hi [3]T
		copy(lo[:], min)
		copy(hi[:], max)
		corners := [8][3]T{
			{lo[0], lo[1], lo[2]},
			{hi[0], lo[1], lo[2]},
			{hi[0], hi[1], lo[2]},
			{lo[0], hi[1], lo[2]},
			{lo[0], lo[1], hi[2]},
			{hi[0], lo[1], hi[2]},
			{hi[0], hi[1], hi[2]},
			{lo[0], hi[1], hi[2]},
		}
		cells.WriteString(strconv.Itoa(cornersPerBin))
		for _, c := range corners[:cornersPerBin] {
			fmt.Fprintf(&points, "%g %g %g\n", float64(c[0]), float64(c[1]), float64(c[2]))
			cells.WriteByte(' ')
			cells.WriteString(strconv.Itoa(npoints))
			npoints++
		}
		cells.WriteByte('\n')
		levels.WriteString(strconv.Itoa(level))
		levels.WriteByte('\n')
		nbins++
	})
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n BVHTree \nASCII\nDATASET UNSTRUCTURED_GRID\n")
	fmt.Fprintf(bw, "POINTS %d double\n", npoints)
	bw.Write(points.Bytes())
	fmt.Fprintf(bw, "CELLS %d %d\n", nbins, nbins*(cornersPerBin+1))
	bw.Write(cells.Bytes())
	fmt.Fprintf(bw, "CELL_TYPES %d\n", nbins)
	for i := 0; i < nbins; i++ {
		bw.WriteString(strconv.Itoa(cellType))
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "CELL_DATA %d\nSCALARS level int\nLOOKUP_TABLE default\n", nbins)
	bw.Write(levels.Bytes())
	return bw.Flush()
}
