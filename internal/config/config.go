// Package config loads the simulation's TOML configuration. Every field has
// a default, so a file only needs the values it changes.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/Garsondee/skirmish-core/internal/ai"
	"github.com/Garsondee/skirmish-core/internal/command"
)

type Config struct {
	Logging     LoggingConfig     `toml:"logging"`
	Visibility  VisibilityConfig  `toml:"visibility"`
	Pathfinding PathfindingConfig `toml:"pathfinding"`
	Command     command.Tuning    `toml:"command"`
	AI          ai.Tuning         `toml:"ai"`
	Sim         SimConfig         `toml:"sim"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // trace, debug, info, warn, error
	Format string `toml:"format"` // "text" or "json"
}

type VisibilityConfig struct {
	TileSize           float64 `toml:"tile_size"`
	DefaultVisionRange float64 `toml:"default_vision_range"` // floor applied to every unit
}

type PathfindingConfig struct {
	Workers int `toml:"workers"`
}

type SimConfig struct {
	TickDT        float64 `toml:"tick_dt"`        // seconds per tick
	ArriveEpsilon float64 `toml:"arrive_epsilon"` // waypoint reached within this distance
}

// Load reads path and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML data over the defaults. name labels errors.
func Parse(data []byte, name string) (*Config, error) {
	cfg := defaults()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Visibility: VisibilityConfig{
			TileSize:           1.0,
			DefaultVisionRange: 12.0,
		},
		Pathfinding: PathfindingConfig{
			Workers: 2,
		},
		Command: command.DefaultTuning(),
		AI:      ai.DefaultTuning(),
		Sim: SimConfig{
			TickDT:        1.0 / 30.0,
			ArriveEpsilon: 0.1,
		},
	}
}

func (c *Config) validate() error {
	switch {
	case c.Visibility.TileSize <= 0:
		return fmt.Errorf("visibility.tile_size must be positive, got %v", c.Visibility.TileSize)
	case c.Pathfinding.Workers < 1:
		return fmt.Errorf("pathfinding.workers must be at least 1, got %d", c.Pathfinding.Workers)
	case c.Sim.TickDT <= 0:
		return fmt.Errorf("sim.tick_dt must be positive, got %v", c.Sim.TickDT)
	}
	return nil
}
