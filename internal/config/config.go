// Package config loads the lox.toml runtime configuration file: VM and
// GC tuning knobs that would otherwise require recompiling or passing a
// long flag list.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// VM holds tunables consumed by internal/vm.
type VM struct {
	MaxFrames          int  `toml:"max_frames"`
	StackSlotsPerFrame int  `toml:"stack_slots_per_frame"`
	TraceExecution     bool `toml:"trace_execution"`
}

// GC holds collector tunables: GrowthFactor and Stress are applied to
// internal/alloc, and the snapshot settings drive internal/gcsnapshot.
// TraceCollections is parsed but no package reads it.
type GC struct {
	GrowthFactor     int    `toml:"growth_factor"`
	Stress           bool   `toml:"stress"`
	TraceCollections bool   `toml:"trace_collections"`
	SnapshotFormat   string `toml:"snapshot_format"` // "" or "cbor"
	SnapshotPath     string `toml:"snapshot_path"`
}

// LanguageServer holds the [language_server] section. Enabled is parsed
// but no package reads it; the server is started by the -lsp flag.
type LanguageServer struct {
	Enabled bool `toml:"enabled"`
}

// Config is the full contents of a lox.toml file. Every field has a
// sensible zero value, so a missing file or a file missing a section is
// never an error.
type Config struct {
	VM             VM             `toml:"vm"`
	GC             GC             `toml:"gc"`
	LanguageServer LanguageServer `toml:"language_server"`

	// Dir is the directory the config file was loaded from; empty for
	// Default().
	Dir string `toml:"-"`
}

// Default returns the configuration used when no lox.toml is found.
func Default() *Config {
	return &Config{
		GC: GC{GrowthFactor: 2},
	}
}

// Load parses lox.toml from dir. A missing file is not an error: it
// returns Default() so callers never need a separate "no config"
// branch.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "lox.toml")
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

// FindAndLoad walks up from startDir looking for a lox.toml file,
// the way a project manifest is normally discovered, returning
// Default() if none is found before reaching the filesystem root.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "lox.toml")
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
