package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasSaneGrowthFactor(t *testing.T) {
	cfg := Default()
	if cfg.GC.GrowthFactor != 2 {
		t.Errorf("got growth factor %d, want 2", cfg.GC.GrowthFactor)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GC.GrowthFactor != 2 {
		t.Errorf("expected defaults when lox.toml is absent, got %+v", cfg)
	}
}

func TestLoadParsesAllSections(t *testing.T) {
	dir := t.TempDir()
	contents := `
[vm]
max_frames = 128
stack_slots_per_frame = 512
trace_execution = true

[gc]
growth_factor = 3
stress = true
snapshot_format = "cbor"
snapshot_path = "gc.cbor"

[language_server]
enabled = true
`
	if err := os.WriteFile(filepath.Join(dir, "lox.toml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VM.MaxFrames != 128 || cfg.VM.StackSlotsPerFrame != 512 || !cfg.VM.TraceExecution {
		t.Errorf("unexpected VM config: %+v", cfg.VM)
	}
	if cfg.GC.GrowthFactor != 3 || !cfg.GC.Stress || cfg.GC.SnapshotFormat != "cbor" || cfg.GC.SnapshotPath != "gc.cbor" {
		t.Errorf("unexpected GC config: %+v", cfg.GC)
	}
	if !cfg.LanguageServer.Enabled {
		t.Error("expected language_server.enabled to be true")
	}
}

func TestFindAndLoadWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "lox.toml"), []byte("[gc]\ngrowth_factor = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GC.GrowthFactor != 5 {
		t.Errorf("expected to find lox.toml in an ancestor directory, got %+v", cfg.GC)
	}
}
