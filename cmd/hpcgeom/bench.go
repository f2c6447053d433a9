package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/olekukonko/tablewriter"
	"github.com/soypat/hpcgeom/bvh"
	"github.com/soypat/hpcgeom/internal/d2"
	"github.com/soypat/hpcgeom/internal/d3"
	"github.com/urfave/cli"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	benchExtent = 100.0
	// Brute force verification is quadratic, so only this many queries
	// are checked.
	maxVerified = 2000
)

// scene is a random set of item boxes and queries laid out for bvh.
type scene struct {
	dims    int
	items   []float64
	queries []float64
	x, y, z []float64
}

func randomScene(rng *rand.Rand, dims, nItems, nQueries int) scene {
	s := scene{dims: dims, x: make([]float64, nQueries), y: make([]float64, nQueries)}
	if dims == 2 {
		domain := d2.Box{Max: r2.Vec{X: benchExtent, Y: benchExtent}}
		boxes := func(n int, size float64) []float64 {
			bs := make([]r2.Box, n)
			for i := range bs {
				sz := r2.Vec{X: size * (0.1 + rng.Float64()), Y: size * (0.1 + rng.Float64())}
				bs[i] = r2.Box(d2.NewBox(domain.Random(rng), sz))
			}
			return bvh.FlattenR2(bs)
		}
		s.items, s.queries = boxes(nItems, 1), boxes(nQueries, 2)
		for i := range s.x {
			p := domain.Random(rng)
			s.x[i], s.y[i] = p.X, p.Y
		}
		return s
	}
	domain := d3.Box{Max: d3.Elem(benchExtent)}
	boxes := func(n int, size float64) []float64 {
		bs := make([]r3.Box, n)
		for i := range bs {
			sz := r3.Vec{X: size * (0.1 + rng.Float64()), Y: size * (0.1 + rng.Float64()), Z: size * (0.1 + rng.Float64())}
			bs[i] = r3.Box(d3.CenteredBox(domain.Random(rng), sz))
		}
		return bvh.FlattenR3(bs)
	}
	s.items, s.queries = boxes(nItems, 2), boxes(nQueries, 4)
	s.z = make([]float64, nQueries)
	for i := range s.x {
		p := domain.Random(rng)
		s.x[i], s.y[i], s.z[i] = p.X, p.Y, p.Z
	}
	return s
}

func benchCmd(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	sc := randomScene(rng, cfg.Dims, cfg.Items, cfg.Queries)
	logger.Infof("%d boxes, %d queries in %dD, space %v", cfg.Items, cfg.Queries, cfg.Dims, cfg.space())

	start := time.Now()
	tree, err := bvh.New(sc.dims, sc.items, cfg.space())
	if err != nil {
		return err
	}
	if err = tree.SetScaleFactor(cfg.ScaleFactor); err != nil {
		return err
	}
	if err = tree.Build(); err != nil {
		return err
	}
	buildTime := time.Since(start)
	st, err := tree.Stats()
	if err != nil {
		return err
	}

	offsets, counts := make([]int, cfg.Queries), make([]int, cfg.Queries)
	start = time.Now()
	cands, err := tree.Find(offsets, counts, sc.x, sc.y, sc.z)
	if err != nil {
		return err
	}
	pointTime := time.Since(start)

	boxOffsets, boxCounts := make([]int, cfg.Queries), make([]int, cfg.Queries)
	start = time.Now()
	boxCands, err := tree.FindBoxes(boxOffsets, boxCounts, sc.queries)
	if err != nil {
		return err
	}
	boxTime := time.Since(start)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Phase", "Time", "Result"})
	table.Append([]string{"build", buildTime.String(), fmt.Sprintf("%d inner nodes, depth %d", st.InnerNodes, st.Depth)})
	table.Append([]string{"point query", pointTime.String(), fmt.Sprintf("%d candidates, %.2f per point", len(cands), perQuery(len(cands), cfg.Queries))})
	table.Append([]string{"box query", boxTime.String(), fmt.Sprintf("%d candidates, %.2f per box", len(boxCands), perQuery(len(boxCands), cfg.Queries))})
	table.SetFooter([]string{"TOTAL", (buildTime + pointTime + boxTime).String(), ""})
	table.Render()
	fmt.Print(buf.String())

	if !ctx.Bool("verify") {
		return nil
	}
	bad := verifyPoints(sc, tree.ScaleFactor(), offsets, counts, cands)
	bad += verifyBoxes(sc, boxOffsets, boxCounts, boxCands)
	if bad > 0 {
		return fmt.Errorf("verification failed for %d queries", bad)
	}
	logger.Infof("verified %d point and box queries", min(cfg.Queries, maxVerified))
	fmt.Println("verification passed")
	return nil
}

func perQuery(n, queries int) float64 {
	if queries == 0 {
		return 0
	}
	return float64(n) / float64(queries)
}

// verifyPoints compares point candidates with a scan over the scaled item
// boxes and returns the number of queries that differ.
func verifyPoints(sc scene, scale float64, offsets, counts, cands []int) (bad int) {
	nItems := len(sc.items) / (2 * sc.dims)
	scaled := make([]d3.Box, nItems)
	for i := range scaled {
		var lo, hi [3]float64
		copy(lo[:], sc.items[2*sc.dims*i:2*sc.dims*i+sc.dims])
		copy(hi[:], sc.items[2*sc.dims*i+sc.dims:2*sc.dims*(i+1)])
		for k := range lo {
			c, half := (lo[k]+hi[k])/2, scale*(hi[k]-lo[k])/2
			lo[k], hi[k] = c-half, c+half
		}
		scaled[i] = d3.Box{Min: r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]}, Max: r3.Vec{X: hi[0], Y: hi[1], Z: hi[2]}}
	}
	var want []int
	for q := 0; q < min(len(sc.x), maxVerified); q++ {
		p := r3.Vec{X: sc.x[q], Y: sc.y[q]}
		if sc.z != nil {
			p.Z = sc.z[q]
		}
		want = want[:0]
		for i, b := range scaled {
			if b.Contains(p) {
				want = append(want, i)
			}
		}
		got := slices.Clone(cands[offsets[q] : offsets[q]+counts[q]])
		slices.Sort(got)
		if !slices.Equal(got, want) {
			logger.Warningf("point %d %v: candidates %v, brute force %v", q, p, got, want)
			bad++
		}
	}
	return bad
}

type rtreeItem struct {
	rect rtreego.Rect
	id   int
}

func (it *rtreeItem) Bounds() rtreego.Rect { return it.rect }

// verifyBoxes checks that every item box an R-tree finds overlapping a query
// box is also a candidate of that query. It returns the number of queries
// missing candidates.
func verifyBoxes(sc scene, offsets, counts, cands []int) (bad int) {
	d := sc.dims
	rect := func(flat []float64, i int) rtreego.Rect {
		lo, hi := flat[2*d*i:2*d*i+d], flat[2*d*i+d:2*d*i+2*d]
		r, err := rtreego.NewRectFromPoints(rtreego.Point(lo), rtreego.Point(hi))
		if err != nil {
			panic("bug: random box is not a valid rectangle: " + err.Error())
		}
		return r
	}
	nItems := len(sc.items) / (2 * d)
	objs := make([]rtreego.Spatial, nItems)
	for i := range objs {
		objs[i] = &rtreeItem{rect: rect(sc.items, i), id: i}
	}
	rt := rtreego.NewTree(d, 25, 50, objs...)
	for q := 0; q < min(len(offsets), maxVerified); q++ {
		got := cands[offsets[q] : offsets[q]+counts[q]]
		for _, s := range rt.SearchIntersect(rect(sc.queries, q)) {
			if id := s.(*rtreeItem).id; !slices.Contains(got, id) {
				logger.Warningf("box %d: overlapping item %d is not a candidate", q, id)
				bad++
				break
			}
		}
	}
	return bad
}
