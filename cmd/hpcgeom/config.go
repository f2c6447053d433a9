package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/soypat/hpcgeom/bvh"
	"github.com/soypat/hpcgeom/parallel"
	"github.com/urfave/cli"
)

// Config holds the settings shared by the commands. Values come from the
// defaults, then the --config file, then flags set on the command line.
type Config struct {
	Space       string  `toml:"space"`
	Items       int     `toml:"items"`
	Queries     int     `toml:"queries"`
	Seed        int64   `toml:"seed"`
	ScaleFactor float64 `toml:"scale_factor"`
	Dims        int     `toml:"dims"`
	Tolerance   float64 `toml:"tolerance"`
}

func defaultConfig() Config {
	return Config{
		Space:       "threads",
		Items:       100_000,
		Queries:     100_000,
		Seed:        1,
		ScaleFactor: bvh.DefaultScaleFactor,
		Dims:        3,
	}
}

func loadConfig(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()
	if path := ctx.GlobalString("config"); path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		for _, key := range md.Undecoded() {
			logger.Warningf("%s: unknown setting %q", path, key.String())
		}
		logger.Infof("loaded settings from %s", path)
	}
	if ctx.GlobalIsSet("space") || cfg.Space == "" {
		cfg.Space = ctx.GlobalString("space")
	}
	if ctx.IsSet("items") {
		cfg.Items = ctx.Int("items")
	}
	if ctx.IsSet("queries") {
		cfg.Queries = ctx.Int("queries")
	}
	if ctx.IsSet("seed") {
		cfg.Seed = ctx.Int64("seed")
	}
	if ctx.IsSet("scale") {
		cfg.ScaleFactor = ctx.Float64("scale")
	}
	if ctx.IsSet("dims") {
		cfg.Dims = ctx.Int("dims")
	}
	if ctx.IsSet("tol") {
		cfg.Tolerance = ctx.Float64("tol")
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if _, err := parallel.ParseSpace(c.Space); err != nil {
		return err
	}
	switch {
	case c.Items < 1:
		return fmt.Errorf("items must be positive, got %d", c.Items)
	case c.Queries < 0:
		return fmt.Errorf("queries must not be negative, got %d", c.Queries)
	case c.Dims != 2 && c.Dims != 3:
		return fmt.Errorf("dims must be 2 or 3, got %d", c.Dims)
	case c.Tolerance < 0:
		return fmt.Errorf("tolerance must not be negative, got %g", c.Tolerance)
	}
	return nil
}

func (c Config) space() parallel.Space {
	s, err := parallel.ParseSpace(c.Space)
	if err != nil {
		panic("bug: unvalidated config: " + err.Error())
	}
	return s
}
