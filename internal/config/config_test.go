package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg.GC != want.GC {
		t.Errorf("got %+v, want %+v", cfg.GC, want.GC)
	}
}

func TestLoadParsesGCAndLogTables(t *testing.T) {
	dir := t.TempDir()
	toml := `
[gc]
stress = true
log = true
growth-factor = 3
initial-threshold = 4096

[log]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(dir, "loxlang.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GC.StressGC || !cfg.GC.LogGC {
		t.Errorf("expected stress and log GC enabled, got %+v", cfg.GC)
	}
	if cfg.GC.GrowthFactor != 3 || cfg.GC.InitialThreshold != 4096 {
		t.Errorf("got %+v, want growth-factor=3 initial-threshold=4096", cfg.GC)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("got log level %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestVMConfigRoundTrips(t *testing.T) {
	cfg := &Config{GC: GCConfig{StressGC: true, GrowthFactor: 2, InitialThreshold: 1024}}
	vmCfg := cfg.VMConfig()
	if !vmCfg.StressGC || vmCfg.GrowthFactor != 2 || vmCfg.InitialThreshold != 1024 {
		t.Errorf("VMConfig did not round-trip: %+v", vmCfg)
	}
}

func TestFindAndLoadWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	toml := "[gc]\nstress = true\n"
	if err := os.WriteFile(filepath.Join(root, "loxlang.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	cfg, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GC.StressGC {
		t.Error("expected FindAndLoad to pick up the parent directory's loxlang.toml")
	}
}
