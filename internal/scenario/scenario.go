// Package scenario loads battle setups from YAML and places them into a
// world: owners into the registry, obstacles into the nav grid, units and
// buildings into the entity store.
package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

//go:embed default.yaml
var defaultScenario []byte

type Scenario struct {
	Name        string         `yaml:"name"`
	Map         MapSpec        `yaml:"map"`
	LocalPlayer int            `yaml:"local_player"`
	Owners      []OwnerSpec    `yaml:"owners"`
	Blocked     []RectSpec     `yaml:"blocked,omitempty"`
	Units       []UnitSpec     `yaml:"units"`
	Buildings   []BuildingSpec `yaml:"buildings,omitempty"`
	Orders      []OrderSpec    `yaml:"orders,omitempty"`
}

type MapSpec struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	TileSize float64 `yaml:"tile_size"`
}

type Point struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

type OwnerSpec struct {
	ID    int       `yaml:"id"`
	Type  string    `yaml:"type"` // player, ai, neutral
	Name  string    `yaml:"name"`
	Team  int       `yaml:"team"`
	Color []float64 `yaml:"color,flow,omitempty"`
	Rally *Point    `yaml:"rally,omitempty"`
}

// RectSpec is a blocked area in grid cells.
type RectSpec struct {
	X int `yaml:"x"`
	Z int `yaml:"z"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

type UnitSpec struct {
	Owner      int     `yaml:"owner"`
	Type       string  `yaml:"type"`
	X          float64 `yaml:"x"`
	Z          float64 `yaml:"z"`
	Count      int     `yaml:"count,omitempty"`   // units laid out in a box around x,z
	Spacing    float64 `yaml:"spacing,omitempty"` // box spacing when count > 1
	Health     int     `yaml:"health,omitempty"`
	Speed      float64 `yaml:"speed,omitempty"`
	Vision     float64 `yaml:"vision,omitempty"`
	Range      float64 `yaml:"range,omitempty"`
	MeleeRange float64 `yaml:"melee_range,omitempty"`
	Ranged     *bool   `yaml:"ranged,omitempty"`
}

type BuildingSpec struct {
	Owner  int     `yaml:"owner"`
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	Size   float64 `yaml:"size"`
	Health int     `yaml:"health,omitempty"`
}

type OrderSpec struct {
	Tick      int     `yaml:"tick"`
	Owner     int     `yaml:"owner"`
	X         float64 `yaml:"x"`
	Z         float64 `yaml:"z"`
	Group     bool    `yaml:"group"`
	Formation string  `yaml:"formation,omitempty"` // box, line, wedge, column
}

// Load reads a scenario file. An empty path yields the built-in scenario.
func Load(path string) (*Scenario, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	sc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Default returns the embedded scenario.
func Default() (*Scenario, error) {
	sc, err := Parse(defaultScenario)
	if err != nil {
		return nil, fmt.Errorf("default scenario: %w", err)
	}
	return sc, nil
}

// Parse decodes, normalizes and validates a scenario document.
func Parse(b []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Normalize fills in optional fields.
func (sc *Scenario) Normalize() {
	if sc.Map.TileSize <= 0 {
		sc.Map.TileSize = 1
	}
	if sc.LocalPlayer == 0 {
		sc.LocalPlayer = 1
	}
	for i := range sc.Units {
		u := &sc.Units[i]
		if u.Count <= 0 {
			u.Count = 1
		}
		if u.Spacing <= 0 {
			u.Spacing = 1.5
		}
	}
	for i := range sc.Buildings {
		if sc.Buildings[i].Size <= 0 {
			sc.Buildings[i].Size = 3
		}
		if sc.Buildings[i].Health <= 0 {
			sc.Buildings[i].Health = 500
		}
	}
}

// Validate reports the first structural problem.
func (sc *Scenario) Validate() error {
	if sc.Map.Width <= 0 || sc.Map.Height <= 0 {
		return fmt.Errorf("map size must be positive, got %dx%d", sc.Map.Width, sc.Map.Height)
	}
	known := map[int]bool{0: true}
	for _, o := range sc.Owners {
		if o.ID <= 0 {
			return fmt.Errorf("owner %q: id must be positive", o.Name)
		}
		if known[o.ID] {
			return fmt.Errorf("owner id %d declared twice", o.ID)
		}
		if o.Color != nil && len(o.Color) != 3 {
			return fmt.Errorf("owner %d: color needs 3 components", o.ID)
		}
		known[o.ID] = true
	}
	for i, u := range sc.Units {
		if !known[u.Owner] {
			return fmt.Errorf("unit %d: unknown owner %d", i, u.Owner)
		}
		if ecs.ParseSpawnType(u.Type) == ecs.SpawnBarracks {
			return fmt.Errorf("unit %d: barracks belong under buildings", i)
		}
	}
	for i, b := range sc.Buildings {
		if !known[b.Owner] {
			return fmt.Errorf("building %d: unknown owner %d", i, b.Owner)
		}
	}
	for i, o := range sc.Orders {
		if !known[o.Owner] {
			return fmt.Errorf("order %d: unknown owner %d", i, o.Owner)
		}
		if o.Tick < 0 {
			return fmt.Errorf("order %d: negative tick", i)
		}
	}
	return nil
}

// Rally returns the rally point declared for an owner.
func (sc *Scenario) Rally(ownerID int) (Point, bool) {
	for _, o := range sc.Owners {
		if o.ID == ownerID && o.Rally != nil {
			return *o.Rally, true
		}
	}
	return Point{}, false
}
