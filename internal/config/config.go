// Package config loads loxlang.toml, the optional project file that tunes
// the VM's collector and the CLI's startup behavior, the same way
// manifest.go loads a project's manifest.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/loxlang/internal/vm"
)

// Config is loxlang.toml's root table.
type Config struct {
	GC  GCConfig  `toml:"gc"`
	Log LogConfig `toml:"log"`

	// Dir is the directory containing the loaded loxlang.toml (set at load
	// time, not read from the file itself).
	Dir string `toml:"-"`
}

// GCConfig configures the collector, mapping directly onto vm.Config.
type GCConfig struct {
	StressGC         bool `toml:"stress"`
	LogGC            bool `toml:"log"`
	GrowthFactor     int  `toml:"growth-factor"`
	InitialThreshold int  `toml:"initial-threshold"`
}

// LogConfig configures the commonlog backend level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config matching vm.DefaultConfig, for when no
// loxlang.toml is present.
func Default() *Config {
	def := vm.DefaultConfig()
	return &Config{GC: GCConfig{GrowthFactor: def.GrowthFactor, InitialThreshold: def.InitialThreshold}}
}

// Load parses loxlang.toml from dir. A missing file is not an error; Load
// returns Default() in that case, matching how a fresh checkout with no
// project file yet should still run.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "loxlang.toml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return cfg, nil
}

// FindAndLoad walks up from startDir looking for loxlang.toml, the same
// upward search manifest.FindAndLoad does for maggie.toml.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, "loxlang.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// VMConfig converts the loaded GC settings into a vm.Config ready to pass
// to vm.New.
func (c *Config) VMConfig() vm.Config {
	return vm.Config{
		StressGC:         c.GC.StressGC,
		LogGC:            c.GC.LogGC,
		GrowthFactor:     c.GC.GrowthFactor,
		InitialThreshold: c.GC.InitialThreshold,
	}
}
