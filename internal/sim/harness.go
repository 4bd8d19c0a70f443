package sim

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/Garsondee/skirmish-core/internal/config"
	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/scenario"
)

// TestSim is a deterministic headless harness for scenario-level tests.
// It builds a scenario from options and runs it with synchronous services.
type TestSim struct {
	*Sim
	Units []*ecs.Entity // spawned units and buildings, in option order

	sc      scenario.Scenario
	cfg     *config.Config
	rng     *rand.Rand
	verbose bool
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // map size, obstacles, seed, config
	simOptOwner                      // owners, applied once infra is set
	simOptUnit                       // units, rallies, orders; owners exist by now
)

// SimOption is a builder step applied to a TestSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*TestSim)
}

// WithMapSize sets the map dimensions in cells.
func WithMapSize(w, h int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.sc.Map.Width, ts.sc.Map.Height = w, h
	}}
}

// WithBlocked marks a rectangle of cells unwalkable.
func WithBlocked(x, z, w, h int) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.sc.Blocked = append(ts.sc.Blocked, scenario.RectSpec{X: x, Z: z, W: w, H: h})
	}}
}

// WithSeed seeds the generator used by WithScatteredUnits.
func WithSeed(seed uint64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.rng = rand.New(rand.NewSource(seed))
	}}
}

// WithVerbose records per-tick movement samples.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) { ts.verbose = v }}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) { ts.cfg = cfg }}
}

// WithOwner declares an owner. kind is "player", "ai" or "neutral".
func WithOwner(id int, kind string, team int) SimOption {
	return SimOption{simOptOwner, func(ts *TestSim) {
		ts.sc.Owners = append(ts.sc.Owners, scenario.OwnerSpec{
			ID: id, Type: kind, Team: team, Name: fmt.Sprintf("%s%d", kind, id),
		})
	}}
}

// WithRally sets an owner's retreat point.
func WithRally(ownerID int, x, z float64) SimOption {
	return SimOption{simOptUnit, func(ts *TestSim) {
		for i := range ts.sc.Owners {
			if ts.sc.Owners[i].ID == ownerID {
				ts.sc.Owners[i].Rally = &scenario.Point{X: x, Z: z}
			}
		}
	}}
}

// WithUnit places one unit of the named type.
func WithUnit(ownerID int, kind string, x, z float64) SimOption {
	return SimOption{simOptUnit, func(ts *TestSim) {
		ts.sc.Units = append(ts.sc.Units, scenario.UnitSpec{Owner: ownerID, Type: kind, X: x, Z: z})
	}}
}

// WithUnitSpec places units from a full spec.
func WithUnitSpec(spec scenario.UnitSpec) SimOption {
	return SimOption{simOptUnit, func(ts *TestSim) {
		ts.sc.Units = append(ts.sc.Units, spec)
	}}
}

// WithScatteredUnits places n units uniformly inside a square of half-size
// radius around (cx, cz).
func WithScatteredUnits(ownerID int, kind string, n int, cx, cz, radius float64) SimOption {
	return SimOption{simOptUnit, func(ts *TestSim) {
		for i := 0; i < n; i++ {
			x := cx + (ts.rng.Float64()*2-1)*radius
			z := cz + (ts.rng.Float64()*2-1)*radius
			ts.sc.Units = append(ts.sc.Units, scenario.UnitSpec{Owner: ownerID, Type: kind, X: x, Z: z})
		}
	}}
}

// WithScriptedOrder schedules a move for all of an owner's units.
func WithScriptedOrder(tick, ownerID int, x, z float64, group bool) SimOption {
	return SimOption{simOptUnit, func(ts *TestSim) {
		ts.sc.Orders = append(ts.sc.Orders, scenario.OrderSpec{Tick: tick, Owner: ownerID, X: x, Z: z, Group: group})
	}}
}

// NewTestSim constructs a TestSim from the given options in ordered passes:
//  1. Infrastructure (map, obstacles, seed, config)
//  2. Owners
//  3. Units, rallies and orders
//  4. Build the simulation
//
// It panics on an invalid setup.
func NewTestSim(opts ...SimOption) *TestSim {
	ts := &TestSim{
		sc:  scenario.Scenario{Name: "test", Map: scenario.MapSpec{Width: 100, Height: 100}},
		rng: rand.New(rand.NewSource(1)),
	}
	for _, kind := range []simOptionKind{simOptInfra, simOptOwner, simOptUnit} {
		for _, o := range opts {
			if o.kind == kind {
				o.fn(ts)
			}
		}
	}
	ts.sc.Normalize()
	if err := ts.sc.Validate(); err != nil {
		panic(fmt.Sprintf("sim: invalid test setup: %v", err))
	}

	simOpts := []Option{WithSync()}
	if ts.verbose {
		simOpts = append(simOpts, WithVerboseLog())
	}
	ts.Sim = FromScenario(ts.cfg, &ts.sc, simOpts...)
	ts.Units = ts.Sim.Spawned()
	return ts
}

// RunTicks advances the simulation n ticks.
func (ts *TestSim) RunTicks(n int) { ts.Run(n) }

// RunUntil advances up to maxTicks, stopping early once predicate holds.
// It returns the tick the predicate was satisfied on, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		ts.Tick()
		if predicate(ts) {
			return ts.CurrentTick()
		}
	}
	return -1
}

// Position returns unit i's world position.
func (ts *TestSim) Position(i int) ecs.Vec3 {
	return ts.Units[i].Transform().Position
}

// AllIdle reports whether no unit is moving or waiting on a path.
func (ts *TestSim) AllIdle() bool {
	for _, e := range ts.Units {
		if mv := e.Movement(); mv != nil && !mv.Idle() {
			return false
		}
	}
	return true
}
