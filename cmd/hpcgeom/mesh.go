package main

import (
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strconv"

	"github.com/soypat/hpcgeom/bvh"
	"github.com/soypat/hpcgeom/iamesh"
	"github.com/soypat/hpcgeom/internal/d2"
	"github.com/soypat/hpcgeom/internal/d3"
	"github.com/soypat/hpcgeom/meshgen"
	"github.com/soypat/hpcgeom/meshio"
	"github.com/soypat/hpcgeom/parallel"
	"github.com/urfave/cli"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func meshCmd(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	remove := ctx.Int("remove")
	if remove < 0 {
		return fmt.Errorf("cannot remove %d elements", remove)
	}

	var rows [][]string
	switch kind := ctx.String("kind"); kind {
	case "tet":
		points, conn, err := meshgen.BCCLattice(r3.Box{Max: d3.Elem(1)}, ctx.Float64("resolution"))
		if err != nil {
			return err
		}
		m, err := iamesh.FromArrays(4, points, conn)
		if err != nil {
			return err
		}
		if rows, err = editAndCompact(m, remove, rng); err != nil {
			return err
		}
		points, conn = meshArrays(m)
		flat, err := meshio.ElementBoxes3D(points, conn, 4)
		if err != nil {
			return err
		}
		misses, err := locateVertices(cfg.space(), 3, flat, m, func(p r3.Vec) (x, y, z float64) { return p.X, p.Y, p.Z })
		if err != nil {
			return err
		}
		rows = append(rows, []string{"vertices missing an element", strconv.Itoa(misses)})
		err = dump(ctx, m)
		if err == nil && misses > 0 {
			err = fmt.Errorf("%d vertices not located in their elements", misses)
		}
		renderSummary(rows)
		return err

	case "tri":
		n := ctx.Int("cells")
		points, conn := meshgen.TriangleGrid(r2.Box{Max: r2.Vec{X: 1, Y: 1}}, n, n)
		if points == nil {
			return fmt.Errorf("empty %dx%d triangle grid", n, n)
		}
		m, err := iamesh.FromArrays(3, points, conn)
		if err != nil {
			return err
		}
		if rows, err = editAndCompact(m, remove, rng); err != nil {
			return err
		}
		points, conn = meshArrays(m)
		boxes := make([]r2.Box, len(conn)/3)
		for i := range boxes {
			bb := d2.Box{Min: points[conn[3*i]], Max: points[conn[3*i]]}
			for _, c := range conn[3*i+1 : 3*i+3] {
				bb = bb.Extend(d2.Box{Min: points[c], Max: points[c]})
			}
			boxes[i] = r2.Box(bb)
		}
		misses, err := locateVertices(cfg.space(), 2, bvh.FlattenR2(boxes), m, func(p r2.Vec) (x, y, z float64) { return p.X, p.Y, 0 })
		if err != nil {
			return err
		}
		rows = append(rows, []string{"vertices missing an element", strconv.Itoa(misses)})
		err = dump(ctx, m)
		if err == nil && misses > 0 {
			err = fmt.Errorf("%d vertices not located in their elements", misses)
		}
		renderSummary(rows)
		return err

	default:
		return fmt.Errorf("unknown mesh kind %q, want tet or tri", kind)
	}
}

// editAndCompact removes random elements and the vertices they leave
// isolated, compacts the mesh and checks it stays consistent.
func editAndCompact[P iamesh.Point](m *iamesh.Mesh[P], remove int, rng *rand.Rand) ([][]string, error) {
	rows := [][]string{
		{"vertices", strconv.Itoa(m.NumVertices())},
		{"elements", strconv.Itoa(m.NumElements())},
		{"manifold", strconv.FormatBool(m.IsManifold(false))},
	}
	if !m.IsValid(true) {
		return rows, fmt.Errorf("generated mesh is not valid")
	}
	removed := 0
	for ; removed < remove && m.NumElements() > 0; removed++ {
		elems := m.Elements()
		m.RemoveElement(elems[rng.Intn(len(elems))])
	}
	isolated := 0
	for _, v := range m.Vertices() {
		if !m.VertexElement(v).Valid() {
			m.RemoveVertex(v)
			isolated++
		}
	}
	slotsV, slotsE := m.VertexSlots(), m.ElementSlots()
	m.Compact()
	logger.Infof("compacted %d vertex and %d element slots to %d and %d", slotsV, slotsE, m.VertexSlots(), m.ElementSlots())
	rows = append(rows,
		[]string{"removed elements", strconv.Itoa(removed)},
		[]string{"removed isolated vertices", strconv.Itoa(isolated)},
		[]string{"compacted vertices", strconv.Itoa(m.NumVertices())},
		[]string{"compacted elements", strconv.Itoa(m.NumElements())},
		[]string{"manifold after edits", strconv.FormatBool(m.IsManifold(false))},
	)
	if !m.IsValid(true) {
		return rows, fmt.Errorf("mesh is not valid after edits")
	}
	return rows, nil
}

// meshArrays returns the point and connectivity arrays of a compacted mesh.
func meshArrays[P iamesh.Point](m *iamesh.Mesh[P]) (points []P, conn []int) {
	points = make([]P, 0, m.NumVertices())
	for _, v := range m.Vertices() {
		p, _ := m.VertexPoint(v)
		points = append(points, p)
	}
	conn = make([]int, 0, m.NumElements()*m.VertsPerElem())
	for _, e := range m.Elements() {
		for _, v := range m.VerticesInElement(e) {
			conn = append(conn, int(v))
		}
	}
	return points, conn
}

// locateVertices queries a tree over the element boxes of a compacted mesh
// at every vertex and returns the number of vertices whose candidates miss
// one of their incident elements.
func locateVertices[P iamesh.Point](s parallel.Space, dims int, boxes []float64, m *iamesh.Mesh[P], coords func(P) (x, y, z float64)) (misses int, err error) {
	tree, err := bvh.New(dims, boxes, s)
	if err != nil {
		return 0, err
	}
	if err = tree.Build(); err != nil {
		return 0, err
	}
	n := m.NumVertices()
	x, y := make([]float64, n), make([]float64, n)
	var z []float64
	if dims == 3 {
		z = make([]float64, n)
	}
	for i, v := range m.Vertices() {
		p, _ := m.VertexPoint(v)
		if z != nil {
			x[i], y[i], z[i] = coords(p)
		} else {
			x[i], y[i], _ = coords(p)
		}
	}
	offsets, counts := make([]int, n), make([]int, n)
	cands, err := tree.Find(offsets, counts, x, y, z)
	if err != nil {
		return 0, err
	}
	for i, v := range m.Vertices() {
		got := cands[offsets[i] : offsets[i]+counts[i]]
		for _, e := range m.ElementsWithVertex(v) {
			if !slices.Contains(got, int(e)) {
				logger.Warningf("vertex %d: element %d is not a candidate", v, e)
				misses++
				break
			}
		}
	}
	return misses, nil
}

func dump[P iamesh.Point](ctx *cli.Context, m *iamesh.Mesh[P]) error {
	if !ctx.Bool("dump") {
		return nil
	}
	return m.Dump(os.Stdout)
}
