package main

import (
	"github.com/soypat/hpcgeom/internal/log"
	"github.com/urfave/cli"
)

var logger = log.New("hpcgeom")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
