package main

import (
	"fmt"
	"image/color"
	"math/rand"
	"os"

	"github.com/soypat/hpcgeom/bvh"
	"github.com/soypat/hpcgeom/internal/d2"
	"github.com/urfave/cli"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func plotCmd(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	n, levels := ctx.Int("items"), ctx.Int("levels")
	if n < 1 || levels < 0 {
		return fmt.Errorf("need a positive box count and level, got %d and %d", n, levels)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	domain := d2.Box{Max: r2.Vec{X: benchExtent, Y: benchExtent}}
	boxes := make([]r2.Box, n)
	for i := range boxes {
		sz := r2.Vec{X: 2 + 8*rng.Float64(), Y: 2 + 8*rng.Float64()}
		boxes[i] = r2.Box(d2.NewBox(domain.Random(rng), sz))
	}
	tree, err := bvh.New(2, bvh.FlattenR2(boxes), cfg.space())
	if err != nil {
		return err
	}
	if err = tree.SetScaleFactor(cfg.ScaleFactor); err != nil {
		return err
	}
	if err = tree.Build(); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d boxes, bins to level %d", len(boxes), levels)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	for _, b := range boxes {
		poly, err := outline(d2.Box(b))
		if err != nil {
			return err
		}
		poly.Color = color.Gray{Y: 210}
		poly.LineStyle.Color = color.Gray{Y: 150}
		p.Add(poly)
	}
	legend := make([]bool, levels+1)
	var polyErr error
	err = tree.Bins(func(level int, min, max []float64) {
		if level > levels || polyErr != nil {
			return
		}
		var poly *plotter.Polygon
		poly, polyErr = outline(d2.Box{Min: r2.Vec{X: min[0], Y: min[1]}, Max: r2.Vec{X: max[0], Y: max[1]}})
		if polyErr != nil {
			return
		}
		poly.Color = nil
		poly.LineStyle.Color = plotutil.Color(level)
		poly.LineStyle.Width = vg.Points(1.5)
		p.Add(poly)
		if !legend[level] {
			legend[level] = true
			p.Legend.Add(fmt.Sprintf("level %d", level), poly)
		}
	})
	if err != nil {
		return err
	}
	if polyErr != nil {
		return polyErr
	}
	out := ctx.String("out")
	if err = p.Save(6*vg.Inch, 6*vg.Inch, out); err != nil {
		return err
	}
	logger.Infof("wrote %s", out)

	if path := ctx.String("vtk"); path != "" {
		fp, err := os.Create(path)
		if err != nil {
			return err
		}
		defer fp.Close()
		if err = tree.WriteVTK(fp); err != nil {
			return err
		}
		logger.Infof("wrote %s", path)
	}
	return nil
}

func outline(b d2.Box) (*plotter.Polygon, error) {
	verts := b.Vertices()
	xys := make(plotter.XYs, len(verts))
	for i, v := range verts {
		xys[i] = plotter.XY{X: v.X, Y: v.Y}
	}
	return plotter.NewPolygon(xys)
}
