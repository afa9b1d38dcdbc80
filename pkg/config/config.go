// Package config holds the backend options and loads them from an optional
// TOML file.
package config

import (
	"fmt"

	"github.com/pelletier/go-toml"

	"github.com/raymyers/sysy-cc/pkg/diag"
)

// MaxColors is the number of allocatable registers on the target
const MaxColors = 25

// Options controls the backend
type Options struct {
	// Colors is the size of the register allocator's color space (1..MaxColors)
	Colors int
	// SpillSeed seeds the order in which spilled nodes are re-colored
	SpillSeed int64
	// Peephole enables the store/load peephole pass
	Peephole bool
	// LogLevel is one of silent, error, warning, verbose
	LogLevel string
}

// Default returns the options used when nothing is configured
func Default() Options {
	return Options{
		Colors:    MaxColors,
		SpillSeed: 1,
		Peephole:  true,
		LogLevel:  "error",
	}
}

// Load reads options from a TOML file. Keys missing from the file keep their
// default values.
func Load(path string) (Options, error) {
	opts := Default()
	tree, err := toml.LoadFile(path)
	if err != nil {
		return opts, err
	}
	if err := opts.apply(tree); err != nil {
		return opts, fmt.Errorf("%s: %w", path, err)
	}
	return opts, opts.Validate()
}

func (o *Options) apply(tree *toml.Tree) error {
	for _, key := range tree.Keys() {
		val := tree.Get(key)
		var ok bool
		switch key {
		case "colors":
			var n int64
			n, ok = val.(int64)
			o.Colors = int(n)
		case "spill_seed":
			o.SpillSeed, ok = val.(int64)
		case "peephole":
			o.Peephole, ok = val.(bool)
		case "log_level":
			o.LogLevel, ok = val.(string)
		default:
			return fmt.Errorf("unknown option %q", key)
		}
		if !ok {
			return fmt.Errorf("option %q has the wrong type", key)
		}
	}
	return nil
}

// Validate checks option ranges
func (o Options) Validate() error {
	if o.Colors < 1 || o.Colors > MaxColors {
		return fmt.Errorf("colors must be in 1..%d, got %d", MaxColors, o.Colors)
	}
	if _, err := diag.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level, falling back to errors only
func (o Options) Level() diag.Level {
	lvl, err := diag.ParseLevel(o.LogLevel)
	if err != nil {
		return diag.LevelError
	}
	return lvl
}
