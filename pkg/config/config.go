// Package config loads the cityview configuration from TOML. A missing
// file is not an error: every field has a default, and a file only needs
// to name what it changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/cityview/pkg/kernel"
	"github.com/chazu/cityview/pkg/viewpoint"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Input struct {
	Path       string     `toml:"path"`
	Origin     [3]float64 `toml:"origin"`
	Projection string     `toml:"projection"`
}

type Viewport struct {
	Width     int `toml:"width"`
	Height    int `toml:"height"`
	MaxPixels int `toml:"max_pixels"`
}

type Sampling struct {
	Granularity [4]int `toml:"granularity"`
	Mode        string `toml:"mode"`
	Experiment  string `toml:"experiment"`
}

type Experiments struct {
	Dir      string `toml:"dir"`
	Database string `toml:"database"` // optional SQLite mirror
}

type Screenshots struct {
	Dir string `toml:"dir"`
}

type Log struct {
	Level string `toml:"level"`
}

// Config is the whole file.
type Config struct {
	Input       Input       `toml:"input"`
	Viewport    Viewport    `toml:"viewport"`
	Sampling    Sampling    `toml:"sampling"`
	Experiments Experiments `toml:"experiments"`
	Screenshots Screenshots `toml:"screenshots"`
	Log         Log         `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Input: Input{Projection: "mercator"},
		Viewport: Viewport{
			Width:     1280,
			Height:    720,
			MaxPixels: 4096 * 4096,
		},
		Sampling: Sampling{
			Granularity: [4]int{2, 2, 2, 3},
			Mode:        "auto",
			Experiment:  "default",
		},
		Experiments: Experiments{Dir: "files/experiments"},
		Screenshots: Screenshots{Dir: "files/screenshots"},
		Log:         Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path or a file that does not
// exist yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Decode(bytes.NewReader(data)); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode overlays the TOML in r onto c. Keys that do not map to a field
// are rejected.
func (c *Config) Decode(r io.Reader) error {
	return toml.NewDecoder(r).DisallowUnknownFields().Decode(c)
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks every field that has a constrained range.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if _, err := kernel.ProjectionByName(c.Input.Projection); err != nil {
		bad("input.projection %q", c.Input.Projection)
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		bad("viewport %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	if c.Viewport.MaxPixels < 0 {
		bad("viewport.max_pixels %d", c.Viewport.MaxPixels)
	}
	if err := c.Granularity().Validate(); err != nil {
		bad("sampling.granularity %v", c.Sampling.Granularity)
	}
	if _, err := viewpoint.ParseMode(c.Sampling.Mode); err != nil {
		bad("sampling.mode %q", c.Sampling.Mode)
	}
	if strings.TrimSpace(c.Sampling.Experiment) == "" {
		bad("sampling.experiment is empty")
	}
	if c.Experiments.Dir == "" {
		bad("experiments.dir is empty")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		bad("log.level %q", c.Log.Level)
	}
	return errors.Join(errs...)
}

// Granularity returns the sampling granularity.
func (c Config) Granularity() viewpoint.Granularity {
	return viewpoint.GranularityFrom(c.Sampling.Granularity)
}

// Mode returns the sampling mode, falling back to auto.
func (c Config) Mode() viewpoint.Mode {
	m, err := viewpoint.ParseMode(c.Sampling.Mode)
	if err != nil {
		return viewpoint.ModeAuto
	}
	return m
}

// Projection returns the input projection, falling back to Mercator.
func (c Config) Projection() kernel.Projection {
	p, err := kernel.ProjectionByName(c.Input.Projection)
	if err != nil {
		return kernel.Mercator
	}
	return p
}

// Origin returns the world origin as a vector.
func (c Config) Origin() kernel.Vec3 {
	return kernel.V(c.Input.Origin[0], c.Input.Origin[1], c.Input.Origin[2])
}
