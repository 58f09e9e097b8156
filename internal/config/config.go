// Package config loads the simulator's yaml configuration. Absent file or
// absent keys fall back to defaults; secrets (admin key, weather key) come
// from the environment, never the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/firefront/internal/grid"
)

// Config holds every tunable of a simulator run.
type Config struct {
	GridWidth  int   `yaml:"grid_width"`
	GridHeight int   `yaml:"grid_height"`
	Seed       int64 `yaml:"seed"` // 0 = draw one from the entropy source

	// Material layout: "uniform" (independent draw per cell) or
	// "clustered" (noise patches). Weights are material name → proportion.
	Layout       string             `yaml:"layout"`
	ClusterScale float64            `yaml:"cluster_scale"`
	Distribution map[string]float64 `yaml:"distribution"`

	TickIntervalMS int `yaml:"tick_interval_ms"`

	APIPort     int    `yaml:"api_port"`
	DBPath      string `yaml:"db_path"` // empty = recorder disabled
	SampleEvery int    `yaml:"sample_every"`
	StreamEvery int    `yaml:"stream_every"`

	WeatherLocation string `yaml:"weather_location"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		GridWidth:      128,
		GridHeight:     72,
		Seed:           0,
		Layout:         grid.LayoutUniform,
		ClusterScale:   12,
		Distribution:   map[string]float64{"grass": 0.50, "wood": 0.45, "fuel": 0.05},
		TickIntervalMS: 50,
		APIPort:        8080,
		DBPath:         "data/firefront.db",
		SampleEvery:    20,
		StreamEvery:    2,
	}
}

// TickInterval returns the base tick interval as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// Load reads a yaml file over the defaults. An empty path returns the
// defaults; a missing file is an error so typos don't silently run stock
// settings.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run.
func (c Config) Validate() error {
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.GridWidth*c.GridHeight > 4_000_000 {
		return fmt.Errorf("grid %dx%d exceeds the 4M cell limit", c.GridWidth, c.GridHeight)
	}
	switch c.Layout {
	case "", grid.LayoutUniform, grid.LayoutClustered:
	default:
		return fmt.Errorf("unknown layout %q", c.Layout)
	}
	if len(c.Distribution) == 0 {
		return fmt.Errorf("distribution must name at least one material")
	}
	for name, w := range c.Distribution {
		if w <= 0 {
			return fmt.Errorf("distribution weight for %q must be > 0, got %v", name, w)
		}
	}
	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("tick interval must be > 0 ms, got %d", c.TickIntervalMS)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api port %d", c.APIPort)
	}
	if c.SampleEvery < 0 || c.StreamEvery < 0 {
		return fmt.Errorf("sample/stream cadence must be >= 0")
	}
	return nil
}
