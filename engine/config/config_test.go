package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "app.toml", `
name = "quad"
start_width = 800
start_height = 600
update_mode = "variable"
backend = "headless"
frame_cap = 120
log_level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "quad" {
		t.Errorf("have name %q, want %q", cfg.Name, "quad")
	}
	if cfg.StartWidth != 800 || cfg.StartHeight != 600 {
		t.Errorf("have size %dx%d, want 800x600", cfg.StartWidth, cfg.StartHeight)
	}
	if cfg.UpdateMode != UpdateModeVariable {
		t.Errorf("have update mode %q, want %q", cfg.UpdateMode, UpdateModeVariable)
	}
	if cfg.Backend != metadata.RendererBackendHeadless {
		t.Errorf("have backend %q, want %q", cfg.Backend, metadata.RendererBackendHeadless)
	}
	if cfg.FrameCap != 120 {
		t.Errorf("have frame cap %d, want 120", cfg.FrameCap)
	}
	if cfg.LogLevel != core.LogLevelDebug {
		t.Errorf("have log level %q, want %q", cfg.LogLevel, core.LogLevelDebug)
	}
	// Untouched keys keep their defaults.
	if cfg.StartPosX != 100 {
		t.Errorf("have start x %d, want 100", cfg.StartPosX)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "app.yaml", `
name: quad
fixed_update_period: 10ms
validation: true
assets_dir: shaders
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := cfg.FixedUpdatePeriod.Duration(), 10*time.Millisecond; have != want {
		t.Errorf("have period %v, want %v", have, want)
	}
	if !cfg.Validation {
		t.Error("have validation off, want on")
	}
	if cfg.AssetsDir != "shaders" {
		t.Errorf("have assets dir %q, want %q", cfg.AssetsDir, "shaders")
	}
	if cfg.UpdateMode != UpdateModeFixed {
		t.Errorf("have update mode %q, want %q", cfg.UpdateMode, UpdateModeFixed)
	}
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yml", ""))
	if err != nil {
		t.Fatal(err)
	}
	if have, want := cfg.FixedUpdatePeriod.Duration(), DefaultFixedUpdatePeriod; have != want {
		t.Errorf("have period %v, want %v", have, want)
	}
	if cfg.Backend != metadata.RendererBackendVulkan {
		t.Errorf("have backend %q, want %q", cfg.Backend, metadata.RendererBackendVulkan)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"zero width", "a.toml", "start_width = 0"},
		{"bad mode", "a.toml", `update_mode = "sometimes"`},
		{"bad backend", "a.yaml", "backend: metal"},
		{"bad level", "a.yaml", "log_level: loud"},
		{"bad duration", "a.yaml", "fixed_update_period: soon"},
		{"zero period", "a.toml", `fixed_update_period = "0s"`},
		{"unknown key", "a.toml", "colour = 3"},
		{"unknown format", "a.json", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			if !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("have %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("have %v, want os.ErrNotExist", err)
	}
}
