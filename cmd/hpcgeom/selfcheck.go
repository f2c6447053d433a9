package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/soypat/hpcgeom/bvh"
	"github.com/soypat/hpcgeom/iamesh"
	"github.com/soypat/hpcgeom/meshio"
	"github.com/urfave/cli"
	"gonum.org/v1/gonum/spatial/r3"
)

func selfcheckCmd(ctx *cli.Context) error {
	setupLogging(ctx)
	if ctx.NArg() != 1 {
		return errors.New("selfcheck takes exactly one STL file")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	path := ctx.Args().First()
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	tris, err := meshio.ReadBinarySTL(fp)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Infof("read %d triangles from %s", len(tris), path)

	points, conn, err := meshio.Weld(tris, float32(cfg.Tolerance))
	if err != nil {
		return err
	}
	m, err := iamesh.FromArrays[r3.Vec](3, points, conn)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	valid := m.IsValid(true)
	manifold := m.IsManifold(true)
	boundary := 0
	for _, e := range m.Elements() {
		for _, n := range m.ElementNeighbors(e) {
			if !n.Valid() {
				boundary++
			}
		}
	}

	flat, err := bvh.FlattenMS3(meshio.TriangleBoxes(tris))
	if err != nil {
		return err
	}
	tree, err := bvh.New[float32](3, flat, cfg.space())
	if err != nil {
		return err
	}
	if err = tree.Build(); err != nil {
		return err
	}
	offsets, counts := make([]int, len(tris)), make([]int, len(tris))
	cands, err := tree.FindBoxes(offsets, counts, flat)
	if err != nil {
		return err
	}
	pairs := 0
	for i := range tris {
		for _, j := range cands[offsets[i] : offsets[i]+counts[i]] {
			if j > i {
				pairs++
			}
		}
	}

	renderSummary([][]string{
		{"triangles", strconv.Itoa(len(tris))},
		{"welded vertices", strconv.Itoa(m.NumVertices())},
		{"elements", strconv.Itoa(m.NumElements())},
		{"dropped triangles", strconv.Itoa(len(tris) - m.NumElements())},
		{"boundary edges", strconv.Itoa(boundary)},
		{"valid", strconv.FormatBool(valid)},
		{"manifold", strconv.FormatBool(manifold)},
		{"overlapping box pairs", strconv.Itoa(pairs)},
	})
	if ctx.Bool("dump") {
		if err = m.Dump(os.Stdout); err != nil {
			return err
		}
	}
	if !valid {
		return fmt.Errorf("%s: inconsistent mesh relations", path)
	}
	return nil
}

// renderSummary prints a two column table of quantities and their values.
func renderSummary(rows [][]string) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Quantity", "Value"})
	table.AppendBulk(rows)
	table.Render()
	fmt.Print(buf.String())
}
