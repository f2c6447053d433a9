// Command hpcgeom benchmarks and exercises the bounding volume hierarchy and
// incidence array mesh packages.
package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "hpcgeom"
	app.Usage = "build and query bounding volume hierarchies and incidence array meshes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML file with default settings",
		},
		cli.StringFlag{
			Name:  "space",
			Value: "threads",
			Usage: "execution space: seq, threads or threads:N",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "bench",
			Usage: "time tree construction and queries over random boxes",
			Description: `
Generate random boxes and query points, build a bounding volume hierarchy
over the boxes and run point and box candidate queries. With --verify the
candidates are checked against a brute force scan and an R-tree.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "items, n",
					Value: defaultConfig().Items,
					Usage: "number of boxes",
				},
				cli.IntFlag{
					Name:  "queries, q",
					Value: defaultConfig().Queries,
					Usage: "number of query points and query boxes",
				},
				cli.IntFlag{
					Name:  "dims, d",
					Value: defaultConfig().Dims,
					Usage: "spatial dimension, 2 or 3",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: defaultConfig().Seed,
					Usage: "random seed",
				},
				cli.Float64Flag{
					Name:  "scale",
					Value: defaultConfig().ScaleFactor,
					Usage: "box scale factor",
				},
				cli.BoolFlag{
					Name:  "verify",
					Usage: "check candidates against brute force and an R-tree",
				},
			},
			Action: benchCmd,
		},
		{
			Name:      "selfcheck",
			Usage:     "check an STL surface for consistency and overlapping triangles",
			ArgsUsage: "model.stl",
			Flags: []cli.Flag{
				cli.Float64Flag{
					Name:  "tol",
					Value: defaultConfig().Tolerance,
					Usage: "vertex weld tolerance, 0 infers it from the shortest edge",
				},
				cli.BoolFlag{
					Name:  "dump",
					Usage: "print the mesh relations",
				},
			},
			Action: selfcheckCmd,
		},
		{
			Name:  "mesh",
			Usage: "generate a structured mesh and exercise incidence array edits",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "kind",
					Value: "tet",
					Usage: "tet for a BCC lattice or tri for a triangle grid",
				},
				cli.Float64Flag{
					Name:  "resolution",
					Value: 0.25,
					Usage: "BCC cell size over the unit cube",
				},
				cli.IntFlag{
					Name:  "cells",
					Value: 16,
					Usage: "triangle grid cells per side",
				},
				cli.IntFlag{
					Name:  "remove",
					Value: 10,
					Usage: "number of random elements to remove before compacting",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: defaultConfig().Seed,
					Usage: "random seed",
				},
				cli.BoolFlag{
					Name:  "dump",
					Usage: "print the mesh relations",
				},
			},
			Action: meshCmd,
		},
		{
			Name:  "plot",
			Usage: "draw the bins of a 2D tree over random boxes",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "items, n",
					Value: 64,
					Usage: "number of boxes",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: defaultConfig().Seed,
					Usage: "random seed",
				},
				cli.IntFlag{
					Name:  "levels",
					Value: 4,
					Usage: "deepest bin level to draw",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "bvh.png",
					Usage: "image file; the extension selects the format",
				},
				cli.StringFlag{
					Name:  "vtk",
					Usage: "also write every bin to this legacy VTK file",
				},
			},
			Action: plotCmd,
		},
	}
	return app
}
