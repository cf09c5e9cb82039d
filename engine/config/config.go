package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
	"gopkg.in/yaml.v3"
)

type UpdateMode string

const (
	// UpdateModeFixed calls the update callback at FixedUpdatePeriod
	// intervals, as many times per frame as needed to catch up.
	UpdateModeFixed UpdateMode = "fixed"
	// UpdateModeVariable calls it once per frame with the frame delta.
	UpdateModeVariable UpdateMode = "variable"
)

const DefaultFixedUpdatePeriod = time.Second / 60

// Duration reads "16ms" style strings from either file format.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name" yaml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x" yaml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y" yaml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width" yaml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32        `toml:"start_height" yaml:"start_height"`
	LogLevel    core.LogLevel `toml:"log_level" yaml:"log_level"`

	UpdateMode        UpdateMode `toml:"update_mode" yaml:"update_mode"`
	FixedUpdatePeriod Duration   `toml:"fixed_update_period" yaml:"fixed_update_period"`
	// Frames per second cap, 0 for none.
	FrameCap uint32 `toml:"frame_cap" yaml:"frame_cap"`

	Backend metadata.RendererBackendType `toml:"backend" yaml:"backend"`
	// Enables Vulkan validation layers.
	Validation bool `toml:"validation" yaml:"validation"`
	// Directory watched for shader changes, relative to the working directory.
	AssetsDir string `toml:"assets_dir" yaml:"assets_dir"`
}

func Default() *ApplicationConfig {
	return &ApplicationConfig{
		Name:              "Anima GPU",
		StartPosX:         100,
		StartPosY:         100,
		StartWidth:        1280,
		StartHeight:       720,
		LogLevel:          core.LogLevelInfo,
		UpdateMode:        UpdateModeFixed,
		FixedUpdatePeriod: Duration(DefaultFixedUpdatePeriod),
		Backend:           metadata.RendererBackendVulkan,
		AssetsDir:         "assets",
	}
}

// Load reads a .toml, .yaml or .yml file over the defaults.
func Load(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			// Empty document, keep the defaults.
			err = nil
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q: %w", ext, core.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %s: %w", path, err, core.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("window size %dx%d has no area: %w", c.StartWidth, c.StartHeight, core.ErrInvalidArgument)
	}
	switch c.UpdateMode {
	case UpdateModeFixed, UpdateModeVariable:
	default:
		return fmt.Errorf("unknown update mode %q: %w", c.UpdateMode, core.ErrInvalidArgument)
	}
	if c.UpdateMode == UpdateModeFixed && c.FixedUpdatePeriod <= 0 {
		return fmt.Errorf("fixed update period must be positive: %w", core.ErrInvalidArgument)
	}
	switch c.Backend {
	case metadata.RendererBackendVulkan, metadata.RendererBackendHeadless:
	default:
		return fmt.Errorf("unknown renderer backend %q: %w", c.Backend, core.ErrInvalidArgument)
	}
	switch strings.ToLower(string(c.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q: %w", c.LogLevel, core.ErrInvalidArgument)
	}
	return nil
}
